package core

import (
	"math/big"
)

// AccountState is the cached view of an account chain: frontier, balances
// and representative as last reported by the node. A zero Frontier means
// the account is unopened, which is a valid state, not an error. The
// struct is replaced wholesale on refresh, never field-by-field.
type AccountState struct {
	Account            Address
	Frontier           BlockHash
	OpenBlock          BlockHash
	Representative     Address
	ConfirmationHeight uint64
	BlockCount         uint64
	Balance            *big.Int
	Receivable         *big.Int
	Weight             *big.Int
}

// Unopened returns the state of an account with no chain yet.
func Unopened(account Address) *AccountState {
	return &AccountState{
		Account:    account,
		Balance:    big.NewInt(0),
		Receivable: big.NewInt(0),
		Weight:     big.NewInt(0),
	}
}

func (s *AccountState) Opened() bool {
	return !s.Frontier.IsZero()
}

// Receivable is an incoming transfer not yet claimed by a receive block.
// Immutable once observed; a hash can be claimed successfully at most
// once.
type Receivable struct {
	Hash      BlockHash
	AmountRaw *big.Int
	Source    Address
}

// ReceivedBlock reports a successfully processed receive. Confirmed is
// false when confirmation was not requested or the wait timed out; the
// block itself was accepted either way.
type ReceivedBlock struct {
	Hash      BlockHash
	AmountRaw *big.Int
	Source    Address
	Confirmed bool
}

// ReceiveOutcome records one item of a bulk receive. A failed item keeps
// the classified error text; the batch is never aborted by it.
type ReceiveOutcome struct {
	ReceivableHash BlockHash
	AmountRaw      *big.Int
	Source         Address
	ReceivedHash   *BlockHash
	Confirmed      bool
	ErrorMessage   string
}

// BlockInfo is the node's view of an arbitrary block, as needed by the
// confirmation polling and sender discovery.
type BlockInfo struct {
	AmountRaw     *big.Int
	BlockAccount  Address
	SourceAccount Address
	Subtype       string
	Confirmed     bool
}

// Transaction is one entry of an account's history.
type Transaction struct {
	Hash           BlockHash
	Type           string
	Subtype        string
	Account        Address
	Representative Address
	Previous       BlockHash
	AmountRaw      *big.Int
	BalanceRaw     *big.Int
	Timestamp      int64
	Height         uint64
	Confirmed      bool
	Link           string
}

// RefundStatus is the terminal state of one refunded receivable.
type RefundStatus string

const (
	RefundInitiated     RefundStatus = "INITIATED"
	RefundSuccess       RefundStatus = "SUCCESS"
	RefundSkipped       RefundStatus = "SKIPPED"
	RefundReceiveFailed RefundStatus = "RECEIVE_FAILED"
	RefundSendFailed    RefundStatus = "SEND_FAILED"
	RefundUnexpected    RefundStatus = "UNEXPECTED_ERROR"
)

// RefundOutcome records what happened to a single receivable during a
// refund. A SEND_FAILED outcome means the receive already happened and
// the funds stay on this account; that partial state is reported, not
// reversed.
type RefundOutcome struct {
	ReceivableHash BlockHash
	AmountRaw      *big.Int
	Source         *Address
	Status         RefundStatus
	ReceiveHash    *BlockHash
	RefundHash     *BlockHash
	ErrorMessage   string
}
