package wallet

import (
	"context"
	"math/big"

	"github.com/txsociety/nano-harvester/pkg/core"
)

// ledger is what the wallet needs from a Nano node. *rpc.Client satisfies
// it; tests substitute fakes.
type ledger interface {
	AccountInfo(ctx context.Context, account core.Address) (*core.AccountState, error)
	Receivables(ctx context.Context, account core.Address, threshold *big.Int) ([]core.Receivable, error)
	BlockInfo(ctx context.Context, hash core.BlockHash) (*core.BlockInfo, error)
	Process(ctx context.Context, block core.SignedBlock) (core.BlockHash, error)
	AccountHistory(ctx context.Context, account core.Address, count int, head *core.BlockHash) ([]core.Transaction, error)
}

// Signer produces submittable blocks from templates. *signing.NodeSigner
// is the shipped implementation; holders of local keys can bring their
// own.
type Signer interface {
	Account() core.Address
	SignAndAttachWork(ctx context.Context, template core.BlockTemplate) (core.SignedBlock, error)
}
