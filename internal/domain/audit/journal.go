// Package audit defines the ledger mutation journal.
package audit

import (
	"context"
	"time"

	"lotledger/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionCancel  Action = "cancel"
	ActionRestore Action = "restore"
)

// Entity types recorded in the journal.
const (
	EntityProduct = "product"
	EntityLot     = "lot"
	EntitySale    = "sale"
	EntityReturn  = "return"
)

// Entry is one journal record. Payload is marshalled to JSON by the journal.
type Entry struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	Operator   string
	Payload    any
	CreatedAt  time.Time
}

// Journal records ledger mutations. Record runs inside the caller's
// transaction so a rolled-back operation leaves no entry behind.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Journal.
func (Nop) Record(context.Context, Entry) error { return nil }

var _ Journal = Nop{}
