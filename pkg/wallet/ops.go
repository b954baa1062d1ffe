package wallet

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/txsociety/nano-harvester/pkg/core"
)

// Send transfers amount nano to destination and returns the hash of the
// accepted send block.
func (w *Wallet) Send(ctx context.Context, destination string, amount decimal.Decimal) core.Result[core.BlockHash] {
	raw, err := core.NanoToRaw(amount)
	if err != nil {
		return core.Fail[core.BlockHash](core.Classify(err))
	}
	return w.SendRaw(ctx, destination, raw)
}

// SendRaw transfers amount raw to destination. Balance checks run
// against the cached state before anything touches the network; a stale
// cache is caught by the node as a fork and handled by the retry loop.
func (w *Wallet) SendRaw(ctx context.Context, destination string, amount *big.Int) core.Result[core.BlockHash] {
	return run(ctx, w, func(ctx context.Context) (core.BlockHash, error) {
		dest, err := core.ParseAddress(destination)
		if err != nil {
			return core.ZeroHash, err
		}
		return w.sendRaw(ctx, dest, amount)
	})
}

func (w *Wallet) sendRaw(ctx context.Context, destination core.Address, amount *big.Int) (core.BlockHash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return core.ZeroHash, core.NewError(core.KindInvalidAmount, "send amount must be positive")
	}
	if w.minSend != nil && amount.Cmp(w.minSend) < 0 {
		return core.ZeroHash, core.NewError(core.KindInvalidAmount,
			"send amount %s raw is below the minimum of %s raw", amount, w.minSend)
	}
	if err := w.ensureState(ctx); err != nil {
		return core.ZeroHash, err
	}
	if w.state.Balance.Cmp(amount) < 0 {
		return core.ZeroHash, core.NewError(core.KindInsufficientBalance,
			"insufficient balance: have %s raw, need %s raw", w.state.Balance, amount)
	}
	return w.withRetry(ctx, func(ctx context.Context) (core.BlockHash, error) {
		if w.state.Balance.Cmp(amount) < 0 {
			return core.ZeroHash, core.NewError(core.KindInsufficientBalance,
				"insufficient balance after refresh: have %s raw, need %s raw", w.state.Balance, amount)
		}
		template := core.BlockTemplate{
			Account:        w.account,
			Previous:       w.state.Frontier,
			Representative: w.currentRepresentative(),
			Balance:        new(big.Int).Sub(w.state.Balance, amount),
			Link:           destination.PublicKeyHex(),
			Subtype:        core.SubtypeSend,
		}
		return w.submit(ctx, template)
	})
}

// ReceiveByHash claims a specific receivable block. When a confirmation
// timeout is configured the call polls until the receive block confirms
// or the timeout elapses; an elapsed timeout is reported through
// Confirmed=false, not as a failure, because the block was accepted.
func (w *Wallet) ReceiveByHash(ctx context.Context, receivableHash core.BlockHash) core.Result[core.ReceivedBlock] {
	return run(ctx, w, func(ctx context.Context) (core.ReceivedBlock, error) {
		return w.receiveByHash(ctx, receivableHash, w.confirmTimeout > 0)
	})
}

// findReceivable checks membership of hash in the account's current
// receivable set, ignoring the configured threshold. A block that is not
// receivable, including one already claimed, is BLOCK_NOT_FOUND.
func (w *Wallet) findReceivable(ctx context.Context, hash core.BlockHash) (core.Receivable, error) {
	receivables, err := w.node.Receivables(ctx, w.account, nil)
	if err != nil {
		return core.Receivable{}, err
	}
	for _, receivable := range receivables {
		if receivable.Hash == hash {
			return receivable, nil
		}
	}
	return core.Receivable{}, core.NewError(core.KindBlockNotFound,
		"block %s is not in the receivable set", hash)
}

func (w *Wallet) receiveByHash(ctx context.Context, receivableHash core.BlockHash, waitConfirmation bool) (core.ReceivedBlock, error) {
	receivable, err := w.findReceivable(ctx, receivableHash)
	if err != nil {
		return core.ReceivedBlock{}, err
	}
	return w.receiveReceivable(ctx, receivable, waitConfirmation)
}

func (w *Wallet) receiveReceivable(ctx context.Context, receivable core.Receivable, waitConfirmation bool) (core.ReceivedBlock, error) {
	if err := w.ensureState(ctx); err != nil {
		return core.ReceivedBlock{}, err
	}
	hash, err := w.withRetry(ctx, func(ctx context.Context) (core.BlockHash, error) {
		template := core.BlockTemplate{
			Account:        w.account,
			Previous:       w.state.Frontier,
			Representative: w.currentRepresentative(),
			Balance:        new(big.Int).Add(w.state.Balance, receivable.AmountRaw),
			Link:           receivable.Hash.Hex(),
			Subtype:        core.SubtypeReceive,
		}
		return w.submit(ctx, template)
	})
	if err != nil {
		return core.ReceivedBlock{}, err
	}

	received := core.ReceivedBlock{
		Hash:      hash,
		AmountRaw: receivable.AmountRaw,
		Source:    receivable.Source,
	}
	if waitConfirmation {
		received.Confirmed = w.awaitConfirmation(ctx, hash)
	}
	return received, nil
}

func (w *Wallet) submit(ctx context.Context, template core.BlockTemplate) (core.BlockHash, error) {
	block, err := w.signer.SignAndAttachWork(ctx, template)
	if err != nil {
		return core.ZeroHash, err
	}
	hash, err := w.node.Process(ctx, block)
	if err != nil {
		return core.ZeroHash, err
	}
	w.advance(template, hash)
	return hash, nil
}

// advance moves the cached state onto the block the node just accepted,
// so a follow-up operation in the same batch builds on the new frontier
// without waiting for a refresh.
func (w *Wallet) advance(template core.BlockTemplate, hash core.BlockHash) {
	if !w.state.Opened() {
		w.state.OpenBlock = hash
	}
	w.state.Frontier = hash
	w.state.Balance = new(big.Int).Set(template.Balance)
	w.state.Representative = template.Representative
	w.state.BlockCount++
}

// currentRepresentative is the chain's representative for an opened
// account, the configured one otherwise. Self-representation is the
// fallback when nothing was configured.
func (w *Wallet) currentRepresentative() core.Address {
	if w.state.Opened() {
		return w.state.Representative
	}
	if !w.representative.IsZero() {
		return w.representative
	}
	return w.account
}

// awaitConfirmation polls the block's confirmation status, starting at
// half a second and doubling up to a five second interval, until the
// wallet's confirmation timeout runs out.
func (w *Wallet) awaitConfirmation(ctx context.Context, hash core.BlockHash) bool {
	const (
		initialInterval = 500 * time.Millisecond
		maxInterval     = 5 * time.Second
	)
	deadline := time.Now().Add(w.confirmTimeout)
	interval := initialInterval
	for {
		info, err := w.node.BlockInfo(ctx, hash)
		if err == nil && info.Confirmed {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if err := w.sleep(ctx, interval); err != nil {
			return false
		}
		if interval *= 2; interval > maxInterval {
			interval = maxInterval
		}
	}
}
