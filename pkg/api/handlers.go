package api

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/txsociety/nano-harvester/pkg/core"
)

type Handler struct {
	wallet  walletService
	db      storage
	webhook notifier
}

func NewHandler(wallet walletService) *Handler {
	return &Handler{wallet: wallet}
}

// WithJournal enables operation journaling. Without it operations are
// executed but not recorded.
func (h *Handler) WithJournal(db storage) *Handler {
	h.db = db
	return h
}

// WithWebhook announces journaled operations to an external endpoint.
func (h *Handler) WithWebhook(webhook notifier) *Handler {
	h.webhook = webhook
	return h
}

func RegisterHandlers(mux *http.ServeMux, h *Handler, token string) {
	mux.HandleFunc("/v1/account", endpoint(http.MethodGet, token, h.getAccount))
	mux.HandleFunc("/v1/balance", endpoint(http.MethodGet, token, h.getBalance))
	mux.HandleFunc("/v1/receivables", endpoint(http.MethodGet, token, h.getReceivables))
	mux.HandleFunc("/v1/history", endpoint(http.MethodGet, token, h.getHistory))
	mux.HandleFunc("/v1/operations", endpoint(http.MethodGet, token, h.getOperations))
	mux.HandleFunc("/v1/send", endpoint(http.MethodPost, token, h.send))
	mux.HandleFunc("/v1/receive-all", endpoint(http.MethodPost, token, h.receiveAll))
	mux.HandleFunc("/v1/sweep", endpoint(http.MethodPost, token, h.sweep))
	mux.HandleFunc("/v1/refunds", endpoint(http.MethodPost, token, h.refundAll))
	mux.HandleFunc("/v1/refunds/{hash}", endpoint(http.MethodPost, token, h.refundByHash))
	mux.HandleFunc("/v1/refund-first-sender", endpoint(http.MethodPost, token, h.refundFirstSender))
}

type accountResponse struct {
	Account            core.Address   `json:"account"`
	Opened             bool           `json:"opened"`
	Frontier           core.BlockHash `json:"frontier"`
	Representative     string         `json:"representative,omitempty"`
	BalanceRaw         string         `json:"balance_raw"`
	BalanceNano        string         `json:"balance_nano"`
	ReceivableRaw      string         `json:"receivable_raw"`
	BlockCount         uint64         `json:"block_count"`
	ConfirmationHeight uint64         `json:"confirmation_height"`
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	result := h.wallet.Refresh(r.Context())
	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	state := result.Value
	response := accountResponse{
		Account:            state.Account,
		Opened:             state.Opened(),
		Frontier:           state.Frontier,
		BalanceRaw:         state.Balance.String(),
		BalanceNano:        core.RawToNano(state.Balance).String(),
		ReceivableRaw:      state.Receivable.String(),
		BlockCount:         state.BlockCount,
		ConfirmationHeight: state.ConfirmationHeight,
	}
	if state.Opened() {
		response.Representative = state.Representative.String()
	}
	writeJSON(w, response)
}

type balanceResponse struct {
	BalanceRaw     string `json:"balance_raw"`
	BalanceNano    string `json:"balance_nano"`
	ReceivableRaw  string `json:"receivable_raw"`
	ReceivableNano string `json:"receivable_nano"`
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	result := h.wallet.BalanceInfo(r.Context())
	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	info := result.Value
	writeJSON(w, balanceResponse{
		BalanceRaw:     info.BalanceRaw.String(),
		BalanceNano:    info.BalanceNano.String(),
		ReceivableRaw:  info.ReceivableRaw.String(),
		ReceivableNano: info.ReceivableNano.String(),
	})
}

type receivableResponse struct {
	Hash      core.BlockHash `json:"hash"`
	AmountRaw string         `json:"amount_raw"`
	Source    core.Address   `json:"source"`
}

func (h *Handler) getReceivables(w http.ResponseWriter, r *http.Request) {
	result := h.wallet.ListReceivables(r.Context())
	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	response := make([]receivableResponse, 0, len(result.Value))
	for _, receivable := range result.Value {
		response = append(response, receivableResponse{
			Hash:      receivable.Hash,
			AmountRaw: receivable.AmountRaw.String(),
			Source:    receivable.Source,
		})
	}
	writeJSON(w, response)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	count := -1
	if v := r.URL.Query().Get("count"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed == 0 {
			writeHttpError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = parsed
	}
	result := h.wallet.History(r.Context(), count)
	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	writeJSON(w, result.Value)
}

func (h *Handler) getOperations(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeHttpError(w, http.StatusNotFound, "operation journal is not configured")
		return
	}
	limit := int64(100)
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			writeHttpError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	operations, err := h.db.GetOperations(r.Context(), limit)
	if err != nil {
		writeHttpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if operations == nil {
		operations = []core.Operation{}
	}
	writeJSON(w, operations)
}

type sendRequest struct {
	Destination string `json:"destination"`
	AmountRaw   string `json:"amount_raw,omitempty"`
	AmountNano  string `json:"amount_nano,omitempty"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var request sendRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeHttpError(w, http.StatusBadRequest, "invalid send request: "+err.Error())
		return
	}
	amount, werr := parseAmount(request.AmountRaw, request.AmountNano)
	if werr != nil {
		writeWalletError(w, werr)
		return
	}
	result := h.wallet.SendRaw(r.Context(), request.Destination, amount)

	operation := core.NewOperation(h.wallet.Account(), core.OpSend)
	operation.AmountRaw = amount
	if dest, err := core.ParseAddress(request.Destination); err == nil {
		operation.Counterparty = &dest
	}
	h.journal(r, operation, result.Err, func(op *core.Operation) {
		hash := result.Value
		op.BlockHash = &hash
	})

	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	writeJSON(w, struct {
		Hash core.BlockHash `json:"hash"`
	}{result.Value})
}

type receivedResponse struct {
	ReceivableHash core.BlockHash  `json:"receivable_hash"`
	AmountRaw      string          `json:"amount_raw"`
	Source         core.Address    `json:"source"`
	ReceivedHash   *core.BlockHash `json:"received_hash,omitempty"`
	Confirmed      bool            `json:"confirmed"`
	Error          string          `json:"error,omitempty"`
}

func (h *Handler) receiveAll(w http.ResponseWriter, r *http.Request) {
	result := h.wallet.ReceiveAll(r.Context())

	operation := core.NewOperation(h.wallet.Account(), core.OpReceive)
	h.journal(r, operation, result.Err, func(op *core.Operation) {
		for _, outcome := range result.Value {
			if outcome.ReceivedHash != nil {
				op.BlockHash = outcome.ReceivedHash
			}
		}
	})

	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	response := make([]receivedResponse, 0, len(result.Value))
	for _, outcome := range result.Value {
		response = append(response, receivedResponse{
			ReceivableHash: outcome.ReceivableHash,
			AmountRaw:      outcome.AmountRaw.String(),
			Source:         outcome.Source,
			ReceivedHash:   outcome.ReceivedHash,
			Confirmed:      outcome.Confirmed,
			Error:          outcome.ErrorMessage,
		})
	}
	writeJSON(w, response)
}

type sweepRequest struct {
	Destination    string `json:"destination"`
	IncludePending bool   `json:"include_pending"`
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	var request sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeHttpError(w, http.StatusBadRequest, "invalid sweep request: "+err.Error())
		return
	}
	result := h.wallet.Sweep(r.Context(), request.Destination, request.IncludePending)

	operation := core.NewOperation(h.wallet.Account(), core.OpSweep)
	if dest, err := core.ParseAddress(request.Destination); err == nil {
		operation.Counterparty = &dest
	}
	h.journal(r, operation, result.Err, func(op *core.Operation) {
		hash := result.Value
		op.BlockHash = &hash
	})

	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	writeJSON(w, struct {
		Hash core.BlockHash `json:"hash"`
	}{result.Value})
}

func (h *Handler) refundAll(w http.ResponseWriter, r *http.Request) {
	result := h.wallet.RefundAllReceivables(r.Context())

	operation := core.NewOperation(h.wallet.Account(), core.OpRefund)
	h.journal(r, operation, result.Err, func(op *core.Operation) {
		for _, outcome := range result.Value {
			if outcome.RefundHash != nil {
				op.BlockHash = outcome.RefundHash
			}
		}
	})

	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	for _, outcome := range result.Value {
		h.recordRefund(r, outcome)
	}
	writeJSON(w, result.Value)
}

func (h *Handler) refundByHash(w http.ResponseWriter, r *http.Request) {
	hash, err := core.ParseBlockHash(r.PathValue("hash"))
	if err != nil {
		writeHttpError(w, http.StatusBadRequest, "invalid block hash")
		return
	}
	result := h.wallet.RefundReceivableByHash(r.Context(), hash)

	operation := core.NewOperation(h.wallet.Account(), core.OpRefund)
	h.journal(r, operation, result.Err, func(op *core.Operation) {
		op.AmountRaw = result.Value.AmountRaw
		op.Counterparty = result.Value.Source
		op.BlockHash = result.Value.RefundHash
	})

	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	h.recordRefund(r, result.Value)
	writeJSON(w, result.Value)
}

func (h *Handler) refundFirstSender(w http.ResponseWriter, r *http.Request) {
	result := h.wallet.RefundFirstSender(r.Context())

	operation := core.NewOperation(h.wallet.Account(), core.OpRefund)
	h.journal(r, operation, result.Err, func(op *core.Operation) {
		hash := result.Value
		op.BlockHash = &hash
	})

	if !result.Success() {
		writeWalletError(w, result.Err)
		return
	}
	writeJSON(w, struct {
		Hash core.BlockHash `json:"hash"`
	}{result.Value})
}

// journal records the operation outcome and announces it, best effort.
func (h *Handler) journal(r *http.Request, operation core.Operation, werr *core.Error, onSuccess func(*core.Operation)) {
	if werr != nil {
		operation.Status = core.OpStatusFailed
		operation.Error = werr.Error()
	} else {
		operation.Status = core.OpStatusSuccess
		onSuccess(&operation)
	}
	if h.db != nil {
		if err := h.db.RecordOperation(r.Context(), operation); err != nil {
			slog.Error("record operation", "error", err)
		}
	}
	if h.webhook != nil {
		if err := h.webhook.Send(r.Context(), operation); err != nil {
			slog.Error("send webhook", "error", err)
		}
	}
}

func (h *Handler) recordRefund(r *http.Request, outcome core.RefundOutcome) {
	if h.db == nil {
		return
	}
	if err := h.db.RecordRefund(r.Context(), h.wallet.Account(), outcome); err != nil {
		slog.Error("record refund", "error", err)
	}
}

func parseAmount(raw, nano string) (*big.Int, *core.Error) {
	switch {
	case raw != "" && nano != "":
		return nil, core.NewError(core.KindInvalidAmount, "specify amount_raw or amount_nano, not both")
	case raw != "":
		amount, err := core.ParseRawAmount(raw)
		if err != nil {
			return nil, core.Classify(err)
		}
		return amount, nil
	case nano != "":
		amount, err := core.ParseNanoAmount(nano)
		if err != nil {
			return nil, core.Classify(err)
		}
		return amount, nil
	}
	return nil, core.NewError(core.KindInvalidAmount, "amount is required")
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("json encode", "error", err)
	}
}

func writeHttpError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := struct {
		Error string `json:"error"`
	}{message}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("json encode", "error", err)
	}
}

func writeWalletError(w http.ResponseWriter, werr *core.Error) {
	status := http.StatusInternalServerError
	switch werr.Kind {
	case core.KindInvalidAccount, core.KindInvalidAmount:
		status = http.StatusBadRequest
	case core.KindBlockNotFound, core.KindAccountNotFound:
		status = http.StatusNotFound
	case core.KindInsufficientBalance:
		status = http.StatusUnprocessableEntity
	case core.KindFork:
		status = http.StatusConflict
	case core.KindNetwork:
		status = http.StatusBadGateway
	case core.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	writeHttpError(w, status, werr.Error())
}
