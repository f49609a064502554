package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Generator generates sequential document numbers.
// Implementations live in the storage layer and take part in the caller's
// transaction, so a rolled-back document does not burn a number.
type Generator interface {
	// Next generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., VD-2026-00001)
	Next(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Key builds the sequence key for cfg and period.
func Key(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format creates the final number string.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts numeric part from formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
