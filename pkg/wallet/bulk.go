package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/txsociety/nano-harvester/pkg/core"
)

// ReceiveAll claims every receivable at or above the configured
// threshold, largest first. One item's failure is recorded in its
// outcome and never aborts the rest of the batch.
func (w *Wallet) ReceiveAll(ctx context.Context) core.Result[[]core.ReceiveOutcome] {
	return run(ctx, w, func(ctx context.Context) ([]core.ReceiveOutcome, error) {
		return w.receiveAll(ctx)
	})
}

func (w *Wallet) receiveAll(ctx context.Context) ([]core.ReceiveOutcome, error) {
	receivables, err := w.listReceivables(ctx)
	if err != nil {
		return nil, err
	}
	outcomes := make([]core.ReceiveOutcome, 0, len(receivables))
	for _, receivable := range receivables {
		outcome := core.ReceiveOutcome{
			ReceivableHash: receivable.Hash,
			AmountRaw:      receivable.AmountRaw,
			Source:         receivable.Source,
		}
		received, err := w.receiveReceivable(ctx, receivable, w.confirmTimeout > 0)
		if err != nil {
			outcome.ErrorMessage = core.Classify(err).Error()
		} else {
			hash := received.Hash
			outcome.ReceivedHash = &hash
			outcome.Confirmed = received.Confirmed
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Sweep sends the entire balance to destination. With includePending the
// receivables are claimed first so they are part of the swept amount.
func (w *Wallet) Sweep(ctx context.Context, destination string, includePending bool) core.Result[core.BlockHash] {
	return run(ctx, w, func(ctx context.Context) (core.BlockHash, error) {
		dest, err := core.ParseAddress(destination)
		if err != nil {
			return core.ZeroHash, err
		}
		return w.sweep(ctx, dest, includePending)
	})
}

func (w *Wallet) sweep(ctx context.Context, destination core.Address, includePending bool) (core.BlockHash, error) {
	if includePending {
		if _, err := w.receiveAll(ctx); err != nil {
			return core.ZeroHash, err
		}
	}
	if err := w.refresh(ctx); err != nil {
		return core.ZeroHash, err
	}
	if w.state.Balance.Sign() <= 0 {
		return core.ZeroHash, core.NewError(core.KindInsufficientBalance, "nothing to sweep: balance is zero")
	}
	return w.sendRaw(ctx, destination, new(big.Int).Set(w.state.Balance))
}

// RefundReceivableByHash returns a single receivable to its sender. The
// outcome reports how far the refund got; a SEND_FAILED outcome means
// the funds were received but could not be returned.
func (w *Wallet) RefundReceivableByHash(ctx context.Context, receivableHash core.BlockHash) core.Result[core.RefundOutcome] {
	return run(ctx, w, func(ctx context.Context) (core.RefundOutcome, error) {
		receivable, err := w.findReceivable(ctx, receivableHash)
		if err != nil {
			return core.RefundOutcome{}, err
		}
		return w.refundOne(ctx, receivable), nil
	})
}

// RefundAllReceivables refunds every receivable at or above the
// threshold, largest first. Items are independent: one failing outcome
// never stops the rest, and a panic inside a single refund is contained
// as an UNEXPECTED_ERROR outcome for that item.
func (w *Wallet) RefundAllReceivables(ctx context.Context) core.Result[[]core.RefundOutcome] {
	return run(ctx, w, func(ctx context.Context) ([]core.RefundOutcome, error) {
		receivables, err := w.listReceivables(ctx)
		if err != nil {
			return nil, err
		}
		outcomes := make([]core.RefundOutcome, 0, len(receivables))
		for _, receivable := range receivables {
			outcomes = append(outcomes, w.refundOne(ctx, receivable))
		}
		return outcomes, nil
	})
}

func (w *Wallet) refundOne(ctx context.Context, receivable core.Receivable) (outcome core.RefundOutcome) {
	source := receivable.Source
	outcome = core.RefundOutcome{
		ReceivableHash: receivable.Hash,
		AmountRaw:      receivable.AmountRaw,
		Source:         &source,
		Status:         core.RefundInitiated,
	}
	defer func() {
		if r := recover(); r != nil {
			outcome.Status = core.RefundUnexpected
			outcome.ErrorMessage = fmt.Sprintf("panic during refund: %v", r)
		}
	}()

	// A self-send cannot be refunded without bouncing forever, so it is
	// skipped before anything is received.
	if source == w.account {
		outcome.Status = core.RefundSkipped
		outcome.ErrorMessage = "receivable originates from this account"
		return outcome
	}

	received, err := w.receiveReceivable(ctx, receivable, false)
	if err != nil {
		outcome.Status = core.RefundReceiveFailed
		outcome.ErrorMessage = core.Classify(err).Error()
		return outcome
	}
	receiveHash := received.Hash
	outcome.ReceiveHash = &receiveHash

	sendHash, err := w.sendRaw(ctx, source, receivable.AmountRaw)
	if err != nil {
		outcome.Status = core.RefundSendFailed
		outcome.ErrorMessage = core.Classify(err).Error()
		return outcome
	}
	refundHash := sendHash
	outcome.RefundHash = &refundHash
	outcome.Status = core.RefundSuccess
	return outcome
}

// RefundFirstSender claims everything and sends the full balance back to
// the account's original funder: the source of the open block for an
// opened account, or the sender of the first receivable in deterministic
// order otherwise.
func (w *Wallet) RefundFirstSender(ctx context.Context) core.Result[core.BlockHash] {
	return run(ctx, w, func(ctx context.Context) (core.BlockHash, error) {
		if err := w.ensureState(ctx); err != nil {
			return core.ZeroHash, err
		}
		var funder core.Address
		if w.state.Opened() {
			info, err := w.node.BlockInfo(ctx, w.state.OpenBlock)
			if err != nil {
				return core.ZeroHash, err
			}
			funder = info.SourceAccount
		} else {
			receivables, err := w.listReceivables(ctx)
			if err != nil {
				return core.ZeroHash, err
			}
			if len(receivables) == 0 {
				return core.ZeroHash, core.NewError(core.KindInsufficientBalance, "account has no funds and no receivables")
			}
			funder = receivables[0].Source
		}
		if funder.IsZero() {
			return core.ZeroHash, core.NewError(core.KindUnexpected, "could not determine the original sender")
		}
		return w.sweep(ctx, funder, true)
	})
}
