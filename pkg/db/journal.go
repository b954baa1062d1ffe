package db

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/txsociety/nano-harvester/pkg/core"
)

func (c *Connection) RecordOperation(ctx context.Context, operation core.Operation) error {
	var blockHash, amount, counterparty *string
	if operation.BlockHash != nil {
		s := operation.BlockHash.Hex()
		blockHash = &s
	}
	if operation.AmountRaw != nil {
		s := operation.AmountRaw.String()
		amount = &s
	}
	if operation.Counterparty != nil {
		s := operation.Counterparty.String()
		counterparty = &s
	}
	_, err := c.postgres.Exec(ctx, `
		INSERT INTO harvester.operations
		(id, account, kind, status, block_hash, amount, counterparty, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		operation.ID,
		operation.Account.String(),
		operation.Kind,
		operation.Status,
		blockHash,
		amount,
		counterparty,
		operation.Error,
		operation.CreatedAt,
	)
	return err
}

func (c *Connection) RecordRefund(ctx context.Context, account core.Address, outcome core.RefundOutcome) error {
	var amount, source, receiveHash, refundHash *string
	if outcome.AmountRaw != nil {
		s := outcome.AmountRaw.String()
		amount = &s
	}
	if outcome.Source != nil {
		s := outcome.Source.String()
		source = &s
	}
	if outcome.ReceiveHash != nil {
		s := outcome.ReceiveHash.Hex()
		receiveHash = &s
	}
	if outcome.RefundHash != nil {
		s := outcome.RefundHash.Hex()
		refundHash = &s
	}
	_, err := c.postgres.Exec(ctx, `
		INSERT INTO harvester.refunds
		(id, account, receivable_hash, amount, source, status, receive_hash, refund_hash, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.Must(uuid.NewV7()),
		account.String(),
		outcome.ReceivableHash.Hex(),
		amount,
		source,
		outcome.Status,
		receiveHash,
		refundHash,
		outcome.ErrorMessage,
		time.Now(),
	)
	return err
}

func (c *Connection) GetOperations(ctx context.Context, limit int64) ([]core.Operation, error) {
	rows, err := c.postgres.Query(ctx, `
		SELECT id, account, kind, status, block_hash, amount, counterparty, error, created_at
		FROM harvester.operations WHERE account = $1
		ORDER BY created_at DESC LIMIT $2`,
		c.account.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var operations []core.Operation
	for rows.Next() {
		var (
			o                           core.Operation
			account                     string
			blockHash, amount, to, oErr *string
		)
		err = rows.Scan(&o.ID, &account, &o.Kind, &o.Status, &blockHash, &amount, &to, &oErr, &o.CreatedAt)
		if err != nil {
			return nil, err
		}
		if o.Account, err = core.ParseAddress(account); err != nil {
			return nil, err
		}
		if blockHash != nil {
			hash, err := core.ParseBlockHash(*blockHash)
			if err != nil {
				return nil, err
			}
			o.BlockHash = &hash
		}
		if amount != nil {
			if o.AmountRaw, err = core.ParseRawAmount(*amount); err != nil {
				return nil, err
			}
		}
		if to != nil {
			counterparty, err := core.ParseAddress(*to)
			if err != nil {
				return nil, err
			}
			o.Counterparty = &counterparty
		}
		if oErr != nil {
			o.Error = *oErr
		}
		operations = append(operations, o)
	}
	return operations, rows.Err()
}

// TotalRefunded sums successful refunds, for reconciliation against the
// chain.
func (c *Connection) TotalRefunded(ctx context.Context) (*big.Int, error) {
	rows, err := c.postgres.Query(ctx, `
		SELECT amount FROM harvester.refunds
		WHERE account = $1 AND status = $2 AND amount IS NOT NULL`,
		c.account.String(), core.RefundSuccess)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := big.NewInt(0)
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		parsed, err := core.ParseRawAmount(amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, parsed)
	}
	return total, rows.Err()
}
