package memory

import (
	"testing"

	"lotledger/internal/core/id"
	"lotledger/internal/core/numerator"
)

var numeratorCfg = numerator.DefaultConfig(numerator.PrefixSale)

func idFor(t *testing.T) id.ID {
	t.Helper()
	return id.New()
}
