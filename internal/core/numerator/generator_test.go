package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAndKey(t *testing.T) {
	period := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cfg     Config
		num     int64
		wantNum string
		wantKey string
	}{
		{"yearly", DefaultConfig(PrefixSale), 7, "VD-2026-00007", "VD_2026"},
		{"monthly", Config{Prefix: PrefixReturn, ResetPeriod: "month", PadWidth: 3}, 12, "DV-012", "DV_2026_03"},
		{"never", Config{Prefix: "X", IncludeYear: true}, 1, "X-2026-00001", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantNum, Format(tt.cfg, period, tt.num))
			assert.Equal(t, tt.wantKey, Key(tt.cfg, period))
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("VD-2026-00042"))
	assert.Equal(t, int64(5), ParseNumber("DV-00005"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
}
