package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txsociety/nano-harvester/pkg/core"
)

func TestClassify(t *testing.T) {
	retryable := []string{"Fork", "fork", "Gap previous block", "Old block", "old block"}
	for _, msg := range retryable {
		err := classify(msg)
		assert.Equal(t, core.KindFork, err.Kind, msg)
		assert.True(t, err.Retryable(), msg)
	}

	assert.Equal(t, core.KindAccountNotFound, classify("Account not found").Kind)
	assert.Equal(t, core.KindBlockNotFound, classify("Block not found").Kind)
	assert.Equal(t, core.KindInvalidAccount, classify("Bad account number").Kind)

	unknown := classify("Invalid block balance")
	assert.Equal(t, core.KindUnexpected, unknown.Kind)
	assert.Equal(t, "RPC_ERROR", unknown.Code)
	assert.False(t, unknown.Retryable())
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url")
	require.Error(t, err)
}

// nodeStub answers each request by action name.
func nodeStub(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		action, _ := request["action"].(string)
		response, ok := responses[action]
		require.True(t, ok, "unexpected action %q", action)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func TestAccountInfo(t *testing.T) {
	account := core.Address{31: 1}
	rep := core.Address{31: 2}
	server := nodeStub(t, map[string]string{
		"account_info": `{
			"frontier": "` + frontierHex + `",
			"open_block": "` + openHex + `",
			"representative": "` + rep.String() + `",
			"balance": "325586539664609129644855132177",
			"confirmation_height": "42",
			"block_count": "45",
			"weight": "0",
			"receivable": "100"
		}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	state, err := client.AccountInfo(context.Background(), account)
	require.NoError(t, err)
	assert.True(t, state.Opened())
	assert.Equal(t, frontierHex, state.Frontier.Hex())
	assert.Equal(t, rep, state.Representative)
	assert.Equal(t, "325586539664609129644855132177", state.Balance.String())
	assert.Equal(t, uint64(42), state.ConfirmationHeight)
	assert.Equal(t, uint64(45), state.BlockCount)
	assert.Equal(t, "100", state.Receivable.String())
}

const (
	frontierHex = "80A6745762493FA21A22718ABFA4F26B941EA1172ABDD8D622C624E1D76A1756"
	openHex     = "0E3F07F7F2B8AEDEA4A984E29BFE1E3933BA473DD3E27C662EC041F6EA3917A0"
)

func TestAccountInfoUnopened(t *testing.T) {
	server := nodeStub(t, map[string]string{
		"account_info": `{"error": "Account not found"}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	account := core.Address{31: 1}
	state, err := client.AccountInfo(context.Background(), account)
	require.NoError(t, err)
	assert.False(t, state.Opened())
	assert.Equal(t, account, state.Account)
	assert.Equal(t, "0", state.Balance.String())
}

func TestReceivables(t *testing.T) {
	source := core.Address{31: 3}
	server := nodeStub(t, map[string]string{
		"receivable": `{"blocks": {
			"` + frontierHex + `": {"amount": "500", "source": "` + source.String() + `"}
		}}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	receivables, err := client.Receivables(context.Background(), core.Address{31: 1}, big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, receivables, 1)
	assert.Equal(t, frontierHex, receivables[0].Hash.Hex())
	assert.Equal(t, "500", receivables[0].AmountRaw.String())
	assert.Equal(t, source, receivables[0].Source)
}

func TestReceivablesEmpty(t *testing.T) {
	// The node reports an empty set as "" instead of an object.
	server := nodeStub(t, map[string]string{
		"receivable": `{"blocks": ""}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	receivables, err := client.Receivables(context.Background(), core.Address{31: 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, receivables)
}

func TestReceivablesMalformed(t *testing.T) {
	// Only the documented "" sentinel means an empty set; any other
	// non-object payload is a broken response, not zero receivables.
	server := nodeStub(t, map[string]string{
		"receivable": `{"blocks": [1, 2, 3]}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	_, err = client.Receivables(context.Background(), core.Address{31: 1}, nil)
	var werr *core.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, core.KindNetwork, werr.Kind)
}

func TestBlockInfoNotFound(t *testing.T) {
	server := nodeStub(t, map[string]string{
		"blocks_info": `{"error": "Block not found"}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	_, err = client.BlockInfo(context.Background(), core.MustParseBlockHash(frontierHex))
	var werr *core.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, core.KindBlockNotFound, werr.Kind)
}

func TestProcessForkRejection(t *testing.T) {
	server := nodeStub(t, map[string]string{
		"process": `{"error": "Fork"}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	block := core.SignedBlock{
		Account:        core.Address{31: 1},
		Previous:       core.MustParseBlockHash(frontierHex),
		Representative: core.Address{31: 2},
		Balance:        big.NewInt(10),
		Link:           openHex,
		Signature:      "sig",
		Work:           "work",
		Subtype:        core.SubtypeSend,
	}
	_, err = client.Process(context.Background(), block)
	var werr *core.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, core.KindFork, werr.Kind)
	assert.True(t, werr.Retryable())
}

func TestProcessAccepted(t *testing.T) {
	server := nodeStub(t, map[string]string{
		"process": `{"hash": "` + openHex + `"}`,
	})
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	hash, err := client.Process(context.Background(), core.SignedBlock{
		Account:        core.Address{31: 1},
		Representative: core.Address{31: 2},
		Balance:        big.NewInt(10),
		Subtype:        core.SubtypeReceive,
	})
	require.NoError(t, err)
	assert.Equal(t, openHex, hash.Hex())
}

func TestTransportFailureIsNetwork(t *testing.T) {
	client, err := New("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = client.AccountInfo(context.Background(), core.Address{31: 1})
	var werr *core.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, core.KindNetwork, werr.Kind)
}
