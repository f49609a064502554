package dto

import (
	"time"

	"lotledger/internal/domain/reports"
)

// DashboardQuery is the query string of GET /reports/dashboard.
type DashboardQuery struct {
	Period string     `form:"period"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
}

// ToFilter converts the query.
func (q DashboardQuery) ToFilter() reports.PeriodFilter {
	return reports.PeriodFilter{Preset: reports.Preset(q.Period), From: q.From, To: q.To}
}
