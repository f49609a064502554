package memory

import (
	"context"
	"time"

	appctx "lotledger/internal/core/context"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/audit"
)

// Journal implements audit.Journal by keeping entries in the store.
type Journal struct{ s *Store }

var _ audit.Journal = (*Journal)(nil)

// Journal returns the audit journal.
func (s *Store) Journal() *Journal { return &Journal{s: s} }

// Record implements audit.Journal.
func (j *Journal) Record(ctx context.Context, e audit.Entry) error {
	defer j.s.lock(ctx)()
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.Operator == "" {
		e.Operator = appctx.GetOperator(ctx)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	j.s.st.journal = append(j.s.st.journal, e)
	return nil
}

// Entries returns recorded entries for an entity, oldest first.
func (j *Journal) Entries(ctx context.Context, entityType string, entityID id.ID) []audit.Entry {
	defer j.s.lock(ctx)()
	var out []audit.Entry
	for _, e := range j.s.st.journal {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}
