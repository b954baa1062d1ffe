package core

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// OperationKind names a journaled wallet operation.
type OperationKind string

const (
	OpSend    OperationKind = "send"
	OpReceive OperationKind = "receive"
	OpSweep   OperationKind = "sweep"
	OpRefund  OperationKind = "refund"
)

type OperationStatus string

const (
	OpStatusSuccess OperationStatus = "success"
	OpStatusFailed  OperationStatus = "failed"
)

// Operation is one journal entry: what the wallet attempted, against
// whom, and how it ended. Failed operations keep the classified error
// text.
type Operation struct {
	ID           uuid.UUID       `json:"id"`
	Account      Address         `json:"account"`
	Kind         OperationKind   `json:"kind"`
	Status       OperationStatus `json:"status"`
	BlockHash    *BlockHash      `json:"block_hash,omitempty"`
	AmountRaw    *big.Int        `json:"amount_raw,omitempty"`
	Counterparty *Address        `json:"counterparty,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewOperation stamps a journal entry with a time-ordered id.
func NewOperation(account Address, kind OperationKind) Operation {
	return Operation{
		ID:        uuid.Must(uuid.NewV7()),
		Account:   account,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}
