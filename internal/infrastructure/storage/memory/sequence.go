package memory

import (
	"context"
	"time"

	"lotledger/internal/core/numerator"
)

// Numerator implements numerator.Generator over the store's sequence map.
type Numerator struct{ s *Store }

var _ numerator.Generator = (*Numerator)(nil)

// Numerator returns the document number generator.
func (s *Store) Numerator() *Numerator { return &Numerator{s: s} }

// Next implements numerator.Generator.
func (n *Numerator) Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	defer n.s.lock(ctx)()
	key := numerator.Key(cfg, period)
	n.s.st.sequences[key]++
	return numerator.Format(cfg, period, n.s.st.sequences[key]), nil
}
