package wallet

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/txsociety/nano-harvester/pkg/core"
	"github.com/txsociety/nano-harvester/pkg/rpc"
	"github.com/txsociety/nano-harvester/pkg/signing"
)

// ReadOnly watches a single account without the ability to sign. It keeps
// a cached AccountState that is replaced wholesale on every refresh and
// serves as the optimistic base for the signing wallet built on top.
// Instances are not safe for concurrent use; concurrency control against
// other writers of the same account happens through fork detection, not
// locks.
type ReadOnly struct {
	node             ledger
	account          core.Address
	receiveThreshold *big.Int
	state            *core.AccountState
}

// Wallet extends ReadOnly with signing and the optimistic
// submit-refresh-retry engine.
type Wallet struct {
	ReadOnly
	signer         Signer
	representative core.Address
	minSend        *big.Int
	retry          RetryPolicy
	confirmTimeout time.Duration
	sleep          sleepFunc
}

// BalanceInfo is the account's balances in both units.
type BalanceInfo struct {
	BalanceRaw     *big.Int
	BalanceNano    decimal.Decimal
	ReceivableRaw  *big.Int
	ReceivableNano decimal.Decimal
}

type Option func(*Wallet)

// WithRepresentative sets the representative used when opening the
// account. An opened account keeps whatever representative its chain
// already has.
func WithRepresentative(rep core.Address) Option {
	return func(w *Wallet) { w.representative = rep }
}

// WithRetryPolicy overrides the fork retry schedule.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(w *Wallet) { w.retry = p }
}

// WithReceiveThreshold ignores receivables below threshold raw in
// listing, receive-all, sweep and refund operations.
func WithReceiveThreshold(threshold *big.Int) Option {
	return func(w *Wallet) { w.receiveThreshold = new(big.Int).Set(threshold) }
}

// WithMinSend rejects sends below minimum raw as INVALID_AMOUNT.
func WithMinSend(minimum *big.Int) Option {
	return func(w *Wallet) { w.minSend = new(big.Int).Set(minimum) }
}

// WithConfirmationTimeout bounds the post-receive confirmation wait.
// Zero disables waiting entirely.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(w *Wallet) { w.confirmTimeout = d }
}

// NewReadOnly returns a watch-only view of account.
func NewReadOnly(node ledger, account core.Address) *ReadOnly {
	return &ReadOnly{node: node, account: account, receiveThreshold: big.NewInt(0)}
}

// NewFromPrivateKey builds a wallet that signs through the trusted node
// behind client. The key is validated and resolved to its account via
// the node before the wallet is returned.
func NewFromPrivateKey(ctx context.Context, client *rpc.Client, privateKey string, usePeers bool, opts ...Option) (*Wallet, error) {
	signer, err := signing.NewNodeSigner(ctx, client, privateKey, usePeers)
	if err != nil {
		return nil, err
	}
	return New(client, signer, opts...), nil
}

// NewFromSeed derives the private key at index from seed and builds a
// wallet the same way NewFromPrivateKey does.
func NewFromSeed(ctx context.Context, client *rpc.Client, seed string, index uint32, usePeers bool, opts ...Option) (*Wallet, error) {
	key, err := signing.DerivePrivateKey(seed, index)
	if err != nil {
		return nil, err
	}
	return NewFromPrivateKey(ctx, client, key, usePeers, opts...)
}

// New builds a signing wallet for the signer's account.
func New(node ledger, signer Signer, opts ...Option) *Wallet {
	w := &Wallet{
		ReadOnly: ReadOnly{
			node:             node,
			account:          signer.Account(),
			receiveThreshold: big.NewInt(0),
		},
		signer:         signer,
		retry:          DefaultRetryPolicy,
		confirmTimeout: 30 * time.Second,
		sleep:          sleepWithContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *ReadOnly) Account() core.Address {
	return w.account
}

// State returns the cached account state, nil before the first refresh.
func (w *ReadOnly) State() *core.AccountState {
	return w.state
}

// refresh replaces the cached state with the node's current view.
func (w *ReadOnly) refresh(ctx context.Context) error {
	state, err := w.node.AccountInfo(ctx, w.account)
	if err != nil {
		return err
	}
	w.state = state
	return nil
}

// ensureState loads the cache on first use.
func (w *ReadOnly) ensureState(ctx context.Context) error {
	if w.state == nil {
		return w.refresh(ctx)
	}
	return nil
}

// Refresh reloads the account state from the node and returns it.
func (w *ReadOnly) Refresh(ctx context.Context) core.Result[*core.AccountState] {
	if err := w.refresh(ctx); err != nil {
		return core.Fail[*core.AccountState](core.Classify(err))
	}
	return core.OK(w.state)
}

// BalanceInfo refreshes and reports the account's balances.
func (w *ReadOnly) BalanceInfo(ctx context.Context) core.Result[BalanceInfo] {
	if err := w.refresh(ctx); err != nil {
		return core.Fail[BalanceInfo](core.Classify(err))
	}
	return core.OK(BalanceInfo{
		BalanceRaw:     w.state.Balance,
		BalanceNano:    core.RawToNano(w.state.Balance),
		ReceivableRaw:  w.state.Receivable,
		ReceivableNano: core.RawToNano(w.state.Receivable),
	})
}

// HasBalance reports whether the account holds or can claim any funds.
func (w *ReadOnly) HasBalance(ctx context.Context) core.Result[bool] {
	if err := w.refresh(ctx); err != nil {
		return core.Fail[bool](core.Classify(err))
	}
	return core.OK(w.state.Balance.Sign() > 0 || w.state.Receivable.Sign() > 0)
}

// ListReceivables returns unclaimed incoming blocks at or above the
// configured threshold, largest amount first, ties broken by ascending
// hash so the order is deterministic.
func (w *ReadOnly) ListReceivables(ctx context.Context) core.Result[[]core.Receivable] {
	receivables, err := w.listReceivables(ctx)
	if err != nil {
		return core.Fail[[]core.Receivable](core.Classify(err))
	}
	return core.OK(receivables)
}

func (w *ReadOnly) listReceivables(ctx context.Context) ([]core.Receivable, error) {
	receivables, err := w.node.Receivables(ctx, w.account, w.receiveThreshold)
	if err != nil {
		return nil, err
	}
	sortReceivables(receivables)
	return receivables, nil
}

func sortReceivables(receivables []core.Receivable) {
	sort.Slice(receivables, func(i, j int) bool {
		cmp := receivables[i].AmountRaw.Cmp(receivables[j].AmountRaw)
		if cmp != 0 {
			return cmp > 0
		}
		return receivables[i].Hash.Hex() < receivables[j].Hash.Hex()
	})
}

// History returns up to count entries of the account's chain, newest
// first. count < 0 returns everything.
func (w *ReadOnly) History(ctx context.Context, count int) core.Result[[]core.Transaction] {
	transactions, err := w.node.AccountHistory(ctx, w.account, count, nil)
	if err != nil {
		return core.Fail[[]core.Transaction](core.Classify(err))
	}
	return core.OK(transactions)
}

// run executes an operation body, classifies its failure and refreshes
// the cached state after success so later reads see the new frontier. A
// failed post-success refresh does not fail the operation; the next call
// refreshes again.
func run[T any](ctx context.Context, w *Wallet, body func(context.Context) (T, error)) core.Result[T] {
	value, err := body(ctx)
	if err != nil {
		return core.Fail[T](core.Classify(err))
	}
	if err := w.refresh(ctx); err != nil {
		slog.Warn("post-operation state refresh failed",
			"account", w.account.String(), "error", err.Error())
	}
	return core.OK(value)
}
