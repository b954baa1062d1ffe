package api

import (
	"context"
	"math/big"

	"github.com/txsociety/nano-harvester/pkg/core"
	"github.com/txsociety/nano-harvester/pkg/wallet"
)

type storage interface {
	RecordOperation(ctx context.Context, operation core.Operation) error
	RecordRefund(ctx context.Context, account core.Address, outcome core.RefundOutcome) error
	GetOperations(ctx context.Context, limit int64) ([]core.Operation, error)
}

type walletService interface {
	Account() core.Address
	Refresh(ctx context.Context) core.Result[*core.AccountState]
	BalanceInfo(ctx context.Context) core.Result[wallet.BalanceInfo]
	ListReceivables(ctx context.Context) core.Result[[]core.Receivable]
	History(ctx context.Context, count int) core.Result[[]core.Transaction]
	SendRaw(ctx context.Context, destination string, amount *big.Int) core.Result[core.BlockHash]
	ReceiveAll(ctx context.Context) core.Result[[]core.ReceiveOutcome]
	Sweep(ctx context.Context, destination string, includePending bool) core.Result[core.BlockHash]
	RefundReceivableByHash(ctx context.Context, hash core.BlockHash) core.Result[core.RefundOutcome]
	RefundAllReceivables(ctx context.Context) core.Result[[]core.RefundOutcome]
	RefundFirstSender(ctx context.Context) core.Result[core.BlockHash]
}

type notifier interface {
	Send(ctx context.Context, operation core.Operation) error
}
