package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"github.com/txsociety/nano-harvester/pkg/core"
)

// Client talks to a Nano node's HTTP JSON RPC endpoint. It is the only
// transport in the repo; every request goes through a circuit breaker so
// a dead node fails fast instead of tying up callers on timeouts.
type Client struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func New(nodeURL string) (*Client, error) {
	if _, err := url.ParseRequestURI(nodeURL); err != nil {
		return nil, fmt.Errorf("invalid node rpc url: %s", nodeURL)
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "nano-node-rpc",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("rpc circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{
		url:     nodeURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: breaker,
	}, nil
}

func (c *Client) call(ctx context.Context, request any, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}
	raw, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.Error("rpc response body close", "error", err.Error())
			}
		}()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("node returned status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if ctx.Err() != nil {
			return core.Classify(ctx.Err())
		}
		return core.NewError(core.KindNetwork, "node rpc: %v", err)
	}
	if err := json.Unmarshal(raw.([]byte), response); err != nil {
		return core.NewError(core.KindNetwork, "decode node response: %v", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// AccountInfo fetches the full account state. An unopened account is a
// valid state: the node's "Account not found" is absorbed into a state
// with a zero frontier and zero balances.
func (c *Client) AccountInfo(ctx context.Context, account core.Address) (*core.AccountState, error) {
	request := struct {
		Action         string `json:"action"`
		Account        string `json:"account"`
		Representative string `json:"representative"`
		Weight         string `json:"weight"`
		Receivable     string `json:"receivable"`
	}{"account_info", account.String(), "true", "true", "true"}

	var response struct {
		errorResponse
		Frontier           string `json:"frontier"`
		OpenBlock          string `json:"open_block"`
		Representative     string `json:"representative"`
		Balance            string `json:"balance"`
		ConfirmationHeight string `json:"confirmation_height"`
		BlockCount         string `json:"block_count"`
		Weight             string `json:"weight"`
		Receivable         string `json:"receivable"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		werr := classify(response.Error)
		if werr.Kind == core.KindAccountNotFound {
			return core.Unopened(account), nil
		}
		return nil, werr
	}

	state := &core.AccountState{Account: account}
	var err error
	if state.Frontier, err = core.ParseBlockHash(response.Frontier); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed frontier in account_info: %v", err)
	}
	if state.OpenBlock, err = core.ParseBlockHash(response.OpenBlock); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed open_block in account_info: %v", err)
	}
	if state.Representative, err = core.ParseAddress(response.Representative); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed representative in account_info: %v", err)
	}
	if state.Balance, err = core.ParseRawAmount(response.Balance); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed balance in account_info: %v", err)
	}
	if state.Receivable, err = core.ParseRawAmount(orZero(response.Receivable)); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed receivable in account_info: %v", err)
	}
	if state.Weight, err = core.ParseRawAmount(orZero(response.Weight)); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed weight in account_info: %v", err)
	}
	if _, err := fmt.Sscan(orZero(response.ConfirmationHeight), &state.ConfirmationHeight); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed confirmation_height in account_info: %v", err)
	}
	if _, err := fmt.Sscan(orZero(response.BlockCount), &state.BlockCount); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed block_count in account_info: %v", err)
	}
	return state, nil
}

// Receivables lists unclaimed incoming blocks with amount at or above
// threshold. The node returns an unordered map; callers impose ordering.
func (c *Client) Receivables(ctx context.Context, account core.Address, threshold *big.Int) ([]core.Receivable, error) {
	request := struct {
		Action    string `json:"action"`
		Account   string `json:"account"`
		Threshold string `json:"threshold,omitempty"`
		Source    string `json:"source"`
	}{"receivable", account.String(), "", "true"}
	if threshold != nil && threshold.Sign() > 0 {
		request.Threshold = threshold.String()
	}

	var response struct {
		errorResponse
		Blocks json.RawMessage `json:"blocks"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, classify(response.Error)
	}

	// An empty receivable set arrives as "" instead of an object.
	if len(response.Blocks) == 0 || bytes.Equal(response.Blocks, []byte(`""`)) {
		return nil, nil
	}
	var entries map[string]struct {
		Amount string `json:"amount"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(response.Blocks, &entries); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed receivable set: %v", err)
	}
	receivables := make([]core.Receivable, 0, len(entries))
	for hash, entry := range entries {
		blockHash, err := core.ParseBlockHash(hash)
		if err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed receivable hash: %v", err)
		}
		amount, err := core.ParseRawAmount(entry.Amount)
		if err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed receivable amount: %v", err)
		}
		source, err := core.ParseAddress(entry.Source)
		if err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed receivable source: %v", err)
		}
		receivables = append(receivables, core.Receivable{Hash: blockHash, AmountRaw: amount, Source: source})
	}
	return receivables, nil
}

// BlockInfo fetches a single block's amount, accounts and confirmation
// status.
func (c *Client) BlockInfo(ctx context.Context, hash core.BlockHash) (*core.BlockInfo, error) {
	request := struct {
		Action string   `json:"action"`
		Hashes []string `json:"hashes"`
		Source string   `json:"source"`
	}{"blocks_info", []string{hash.Hex()}, "true"}

	var response struct {
		errorResponse
		Blocks map[string]struct {
			Amount        string `json:"amount"`
			BlockAccount  string `json:"block_account"`
			SourceAccount string `json:"source_account"`
			Subtype       string `json:"subtype"`
			Confirmed     string `json:"confirmed"`
		} `json:"blocks"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, classify(response.Error)
	}
	entry, ok := response.Blocks[hash.Hex()]
	if !ok {
		return nil, core.NewError(core.KindBlockNotFound, "block not found: %s", hash)
	}

	info := &core.BlockInfo{Subtype: entry.Subtype, Confirmed: entry.Confirmed == "true"}
	var err error
	if info.AmountRaw, err = core.ParseRawAmount(orZero(entry.Amount)); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed amount in blocks_info: %v", err)
	}
	if info.BlockAccount, err = core.ParseAddress(entry.BlockAccount); err != nil {
		return nil, core.NewError(core.KindNetwork, "malformed block_account in blocks_info: %v", err)
	}
	// source_account is "0" for non-receive subjects; leave it zero then.
	if entry.SourceAccount != "" && entry.SourceAccount != "0" {
		if info.SourceAccount, err = core.ParseAddress(entry.SourceAccount); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed source_account in blocks_info: %v", err)
		}
	}
	return info, nil
}

// Process submits a signed block. A rejection caused by a stale previous
// field classifies as a retryable FORK error.
func (c *Client) Process(ctx context.Context, block core.SignedBlock) (core.BlockHash, error) {
	request := struct {
		Action    string    `json:"action"`
		JSONBlock string    `json:"json_block"`
		Subtype   string    `json:"subtype"`
		Block     blockJSON `json:"block"`
	}{"process", "true", string(block.Subtype), toBlockJSON(block)}

	var response struct {
		errorResponse
		Hash string `json:"hash"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return core.ZeroHash, err
	}
	if response.Error != "" {
		return core.ZeroHash, classify(response.Error)
	}
	hash, err := core.ParseBlockHash(response.Hash)
	if err != nil {
		return core.ZeroHash, core.NewError(core.KindNetwork, "malformed hash in process response: %v", err)
	}
	return hash, nil
}

// WorkGenerate asks the node (optionally its work peers) for proof of
// work over the given root.
func (c *Client) WorkGenerate(ctx context.Context, root core.BlockHash, usePeers bool) (string, error) {
	request := struct {
		Action   string `json:"action"`
		Hash     string `json:"hash"`
		UsePeers bool   `json:"use_peers"`
	}{"work_generate", root.Hex(), usePeers}

	var response struct {
		errorResponse
		Work string `json:"work"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return "", err
	}
	if response.Error != "" {
		return "", classify(response.Error)
	}
	return response.Work, nil
}

// BlockCreate has the node build and sign a state block from the
// template. Trusted-node mode: the private key travels to the node.
func (c *Client) BlockCreate(ctx context.Context, template core.BlockTemplate, privateKey, work string) (core.SignedBlock, error) {
	request := struct {
		Action         string `json:"action"`
		JSONBlock      string `json:"json_block"`
		Type           string `json:"type"`
		Previous       string `json:"previous"`
		Account        string `json:"account"`
		Representative string `json:"representative"`
		Balance        string `json:"balance"`
		Link           string `json:"link"`
		Key            string `json:"key"`
		Work           string `json:"work,omitempty"`
	}{
		Action:         "block_create",
		JSONBlock:      "true",
		Type:           "state",
		Previous:       template.Previous.Hex(),
		Account:        template.Account.String(),
		Representative: template.Representative.String(),
		Balance:        template.Balance.String(),
		Link:           template.Link,
		Key:            privateKey,
		Work:           work,
	}

	var response struct {
		errorResponse
		Hash  string    `json:"hash"`
		Block blockJSON `json:"block"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return core.SignedBlock{}, err
	}
	if response.Error != "" {
		return core.SignedBlock{}, classify(response.Error)
	}
	hash, err := core.ParseBlockHash(response.Hash)
	if err != nil {
		return core.SignedBlock{}, core.NewError(core.KindNetwork, "malformed hash in block_create response: %v", err)
	}
	return core.SignedBlock{
		Hash:           hash,
		Account:        template.Account,
		Previous:       template.Previous,
		Representative: template.Representative,
		Balance:        new(big.Int).Set(template.Balance),
		Link:           template.Link,
		Signature:      response.Block.Signature,
		Work:           response.Block.Work,
		Subtype:        template.Subtype,
	}, nil
}

// KeyExpand resolves the account address that belongs to a private key.
func (c *Client) KeyExpand(ctx context.Context, privateKey string) (core.Address, error) {
	request := struct {
		Action string `json:"action"`
		Key    string `json:"key"`
	}{"key_expand", privateKey}

	var response struct {
		errorResponse
		Account string `json:"account"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return core.Address{}, err
	}
	if response.Error != "" {
		return core.Address{}, classify(response.Error)
	}
	return core.ParseAddress(response.Account)
}

// AccountHistory returns up to count history entries, newest first,
// optionally starting from head. count < 0 means all.
func (c *Client) AccountHistory(ctx context.Context, account core.Address, count int, head *core.BlockHash) ([]core.Transaction, error) {
	request := struct {
		Action  string `json:"action"`
		Account string `json:"account"`
		Count   string `json:"count"`
		Raw     string `json:"raw"`
		Head    string `json:"head,omitempty"`
	}{"account_history", account.String(), fmt.Sprint(count), "true", ""}
	if head != nil {
		request.Head = head.Hex()
	}

	var response struct {
		errorResponse
		History []struct {
			Hash           string `json:"hash"`
			Type           string `json:"type"`
			Subtype        string `json:"subtype"`
			Account        string `json:"account"`
			Representative string `json:"representative"`
			Previous       string `json:"previous"`
			Amount         string `json:"amount"`
			Balance        string `json:"balance"`
			LocalTimestamp string `json:"local_timestamp"`
			Height         string `json:"height"`
			Confirmed      string `json:"confirmed"`
			Link           string `json:"link"`
		} `json:"history"`
	}
	if err := c.call(ctx, request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		werr := classify(response.Error)
		if werr.Kind == core.KindAccountNotFound {
			return nil, nil
		}
		return nil, werr
	}

	transactions := make([]core.Transaction, 0, len(response.History))
	for _, entry := range response.History {
		tx := core.Transaction{
			Type:      entry.Type,
			Subtype:   entry.Subtype,
			Confirmed: entry.Confirmed == "true",
			Link:      entry.Link,
		}
		var err error
		if tx.Hash, err = core.ParseBlockHash(entry.Hash); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed hash in account_history: %v", err)
		}
		if tx.Previous, err = core.ParseBlockHash(orZeroHash(entry.Previous)); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed previous in account_history: %v", err)
		}
		if entry.Account != "" {
			if tx.Account, err = core.ParseAddress(entry.Account); err != nil {
				return nil, core.NewError(core.KindNetwork, "malformed account in account_history: %v", err)
			}
		}
		if entry.Representative != "" {
			if tx.Representative, err = core.ParseAddress(entry.Representative); err != nil {
				return nil, core.NewError(core.KindNetwork, "malformed representative in account_history: %v", err)
			}
		}
		if tx.AmountRaw, err = core.ParseRawAmount(orZero(entry.Amount)); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed amount in account_history: %v", err)
		}
		if tx.BalanceRaw, err = core.ParseRawAmount(orZero(entry.Balance)); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed balance in account_history: %v", err)
		}
		if _, err := fmt.Sscan(orZero(entry.LocalTimestamp), &tx.Timestamp); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed local_timestamp in account_history: %v", err)
		}
		if _, err := fmt.Sscan(orZero(entry.Height), &tx.Height); err != nil {
			return nil, core.NewError(core.KindNetwork, "malformed height in account_history: %v", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

type blockJSON struct {
	Type           string `json:"type"`
	Account        string `json:"account"`
	Previous       string `json:"previous"`
	Representative string `json:"representative"`
	Balance        string `json:"balance"`
	Link           string `json:"link"`
	Signature      string `json:"signature"`
	Work           string `json:"work"`
}

func toBlockJSON(block core.SignedBlock) blockJSON {
	return blockJSON{
		Type:           "state",
		Account:        block.Account.String(),
		Previous:       block.Previous.Hex(),
		Representative: block.Representative.String(),
		Balance:        block.Balance.String(),
		Link:           block.Link,
		Signature:      block.Signature,
		Work:           block.Work,
	}
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func orZeroHash(s string) string {
	if s == "" {
		return core.ZeroHash.Hex()
	}
	return s
}
