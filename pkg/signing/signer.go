package signing

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/txsociety/nano-harvester/pkg/core"
	"github.com/txsociety/nano-harvester/pkg/rpc"
)

// NodeSigner builds and signs state blocks through a trusted node's
// block_create call. The private key travels to the node on every sign,
// so this signer must only ever point at a node the operator controls.
// Callers that hold keys locally can provide their own implementation of
// the wallet's Signer interface instead.
type NodeSigner struct {
	client     *rpc.Client
	privateKey string
	account    core.Address
	usePeers   bool
}

// NewNodeSigner resolves the account behind privateKey via key_expand and
// returns a signer bound to it. usePeers routes proof of work to the
// node's configured work peers.
func NewNodeSigner(ctx context.Context, client *rpc.Client, privateKey string, usePeers bool) (*NodeSigner, error) {
	if raw, err := hex.DecodeString(privateKey); err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 64 hex characters")
	}
	account, err := client.KeyExpand(ctx, privateKey)
	if err != nil {
		return nil, fmt.Errorf("resolve account from private key: %w", err)
	}
	return &NodeSigner{
		client:     client,
		privateKey: privateKey,
		account:    account,
		usePeers:   usePeers,
	}, nil
}

func (s *NodeSigner) Account() core.Address {
	return s.account
}

// SignAndAttachWork turns a block template into a submittable block.
// With work peers enabled the work is generated first and handed to
// block_create; otherwise the node computes it inline.
func (s *NodeSigner) SignAndAttachWork(ctx context.Context, template core.BlockTemplate) (core.SignedBlock, error) {
	work := ""
	if s.usePeers {
		// The work root is the frontier, or the account's public key
		// for the first block of a chain.
		root := template.Previous
		if root.IsZero() {
			root = core.BlockHash(template.Account)
		}
		generated, err := s.client.WorkGenerate(ctx, root, true)
		if err != nil {
			return core.SignedBlock{}, err
		}
		work = generated
	}
	return s.client.BlockCreate(ctx, template, s.privateKey, work)
}
