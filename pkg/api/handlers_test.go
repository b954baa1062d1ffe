package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txsociety/nano-harvester/pkg/core"
	"github.com/txsociety/nano-harvester/pkg/wallet"
)

type fakeWallet struct {
	account  core.Address
	state    *core.AccountState
	sendErr  *core.Error
	sentTo   string
	sentRaw  *big.Int
	sendHash core.BlockHash
}

func (f *fakeWallet) Account() core.Address { return f.account }

func (f *fakeWallet) Refresh(context.Context) core.Result[*core.AccountState] {
	return core.OK(f.state)
}

func (f *fakeWallet) BalanceInfo(context.Context) core.Result[wallet.BalanceInfo] {
	return core.OK(wallet.BalanceInfo{BalanceRaw: f.state.Balance, ReceivableRaw: f.state.Receivable})
}

func (f *fakeWallet) ListReceivables(context.Context) core.Result[[]core.Receivable] {
	return core.OK([]core.Receivable{})
}

func (f *fakeWallet) History(context.Context, int) core.Result[[]core.Transaction] {
	return core.OK([]core.Transaction{})
}

func (f *fakeWallet) SendRaw(_ context.Context, destination string, amount *big.Int) core.Result[core.BlockHash] {
	if f.sendErr != nil {
		return core.Fail[core.BlockHash](f.sendErr)
	}
	f.sentTo = destination
	f.sentRaw = amount
	return core.OK(f.sendHash)
}

func (f *fakeWallet) ReceiveAll(context.Context) core.Result[[]core.ReceiveOutcome] {
	return core.OK([]core.ReceiveOutcome{})
}

func (f *fakeWallet) Sweep(context.Context, string, bool) core.Result[core.BlockHash] {
	return core.OK(f.sendHash)
}

func (f *fakeWallet) RefundReceivableByHash(_ context.Context, hash core.BlockHash) core.Result[core.RefundOutcome] {
	refundHash := f.sendHash
	source := core.Address{31: 5}
	return core.OK(core.RefundOutcome{
		ReceivableHash: hash,
		AmountRaw:      big.NewInt(20),
		Source:         &source,
		Status:         core.RefundSuccess,
		RefundHash:     &refundHash,
	})
}

func (f *fakeWallet) RefundAllReceivables(context.Context) core.Result[[]core.RefundOutcome] {
	refundHash := f.sendHash
	return core.OK([]core.RefundOutcome{{Status: core.RefundSuccess, RefundHash: &refundHash}})
}

func (f *fakeWallet) RefundFirstSender(context.Context) core.Result[core.BlockHash] {
	return core.OK(f.sendHash)
}

type fakeJournal struct {
	operations []core.Operation
	refunds    []core.RefundOutcome
}

func (j *fakeJournal) RecordOperation(_ context.Context, operation core.Operation) error {
	j.operations = append(j.operations, operation)
	return nil
}

func (j *fakeJournal) RecordRefund(_ context.Context, _ core.Address, outcome core.RefundOutcome) error {
	j.refunds = append(j.refunds, outcome)
	return nil
}

func (j *fakeJournal) GetOperations(context.Context, int64) ([]core.Operation, error) {
	return j.operations, nil
}

type fakeNotifier struct {
	sent []core.Operation
}

func (n *fakeNotifier) Send(_ context.Context, operation core.Operation) error {
	n.sent = append(n.sent, operation)
	return nil
}

const testToken = "secret"

func newTestServer(fw *fakeWallet) *httptest.Server {
	mux := http.NewServeMux()
	RegisterHandlers(mux, NewHandler(fw), testToken)
	return httptest.NewServer(mux)
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func testState(account core.Address) *core.AccountState {
	return &core.AccountState{
		Account:    account,
		Balance:    big.NewInt(1000),
		Receivable: big.NewInt(0),
		Weight:     big.NewInt(0),
	}
}

func TestAuthRequired(t *testing.T) {
	server := newTestServer(&fakeWallet{account: core.Address{31: 1}, state: testState(core.Address{31: 1})})
	defer server.Close()

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/account", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/account", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetAccount(t *testing.T) {
	account := core.Address{31: 1}
	server := newTestServer(&fakeWallet{account: account, state: testState(account)})
	defer server.Close()

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/account", testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body accountResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, account, body.Account)
	assert.False(t, body.Opened)
	assert.Equal(t, "1000", body.BalanceRaw)
}

func TestAccountRejectsPost(t *testing.T) {
	server := newTestServer(&fakeWallet{account: core.Address{31: 1}, state: testState(core.Address{31: 1})})
	defer server.Close()

	resp := doRequest(t, http.MethodPost, server.URL+"/v1/account", testToken, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSend(t *testing.T) {
	account := core.Address{31: 1}
	dest := core.Address{31: 9}
	fw := &fakeWallet{account: account, state: testState(account), sendHash: core.BlockHash{31: 42}}
	server := newTestServer(fw)
	defer server.Close()

	body := `{"destination": "` + dest.String() + `", "amount_raw": "250"}`
	resp := doRequest(t, http.MethodPost, server.URL+"/v1/send", testToken, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dest.String(), fw.sentTo)
	assert.Equal(t, "250", fw.sentRaw.String())
}

func TestSendAmountValidation(t *testing.T) {
	account := core.Address{31: 1}
	server := newTestServer(&fakeWallet{account: account, state: testState(account)})
	defer server.Close()

	for _, body := range []string{
		`{"destination": "x"}`,
		`{"destination": "x", "amount_raw": "1", "amount_nano": "1"}`,
		`{"destination": "x", "amount_raw": "abc"}`,
	} {
		resp := doRequest(t, http.MethodPost, server.URL+"/v1/send", testToken, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestRefundEndpointsJournalAndNotify(t *testing.T) {
	account := core.Address{31: 1}
	fw := &fakeWallet{account: account, state: testState(account), sendHash: core.BlockHash{31: 42}}
	journal := &fakeJournal{}
	hook := &fakeNotifier{}
	mux := http.NewServeMux()
	RegisterHandlers(mux, NewHandler(fw).WithJournal(journal).WithWebhook(hook), testToken)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp := doRequest(t, http.MethodPost, server.URL+"/v1/refunds", testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	receivable := core.BlockHash{31: 7}
	resp = doRequest(t, http.MethodPost, server.URL+"/v1/refunds/"+receivable.Hex(), testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, journal.operations, 2)
	for _, op := range journal.operations {
		assert.Equal(t, core.OpRefund, op.Kind)
		assert.Equal(t, core.OpStatusSuccess, op.Status)
		require.NotNil(t, op.BlockHash)
		assert.Equal(t, fw.sendHash, *op.BlockHash)
	}
	assert.Equal(t, "20", journal.operations[1].AmountRaw.String())
	require.NotNil(t, journal.operations[1].Counterparty)

	assert.Len(t, journal.refunds, 2)
	assert.Len(t, hook.sent, 2)
}

func TestSendErrorMapping(t *testing.T) {
	account := core.Address{31: 1}
	cases := []struct {
		err    *core.Error
		status int
	}{
		{core.NewError(core.KindInsufficientBalance, "no funds"), http.StatusUnprocessableEntity},
		{core.NewError(core.KindInvalidAccount, "bad account"), http.StatusBadRequest},
		{core.NewErrorWithCode(core.KindFork, "MAX_RETRIES_EXCEEDED", "gave up"), http.StatusConflict},
		{core.NewError(core.KindNetwork, "node down"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		fw := &fakeWallet{account: account, state: testState(account), sendErr: tc.err}
		server := newTestServer(fw)
		body := `{"destination": "` + core.Address{31: 9}.String() + `", "amount_raw": "250"}`
		resp := doRequest(t, http.MethodPost, server.URL+"/v1/send", testToken, body)
		assert.Equal(t, tc.status, resp.StatusCode, string(tc.err.Kind))
		server.Close()
	}
}
