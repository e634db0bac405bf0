package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/settlement"
	"solana-swap-vault/internal/storage"
	"solana-swap-vault/internal/swap"
)

const (
	defaultLedgerLimit = 100
	maxLedgerLimit     = 1000
)

type initializeRequest struct {
	Admin string `json:"admin"`
	Mint  string `json:"mint"`
}

type amountRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

type swapRequest struct {
	Caller      string `json:"caller"`
	AmountToken uint64 `json:"amount_token"`
}

type vaultResponse struct {
	Address       string `json:"address"`
	Authority     string `json:"authority"`
	NativeBalance uint64 `json:"native_balance"`
	TokenVault    string `json:"token_vault,omitempty"`
	TokenMint     string `json:"token_mint,omitempty"`
}

type entryResponse struct {
	EntryID      string `json:"entry_id"`
	Vault        string `json:"vault"`
	Seq          int64  `json:"seq"`
	Kind         string `json:"kind"`
	Caller       string `json:"caller"`
	AmountNative uint64 `json:"amount_native"`
	AmountToken  uint64 `json:"amount_token,omitempty"`
	Rate         uint64 `json:"rate,omitempty"`
	Dust         uint64 `json:"dust,omitempty"`
	BalanceAfter uint64 `json:"balance_after"`
	Timestamp    int64  `json:"timestamp_ms"`
}

type quoteResponse struct {
	AmountToken  uint64 `json:"amount_token"`
	AmountNative uint64 `json:"amount_native"`
	Rate         uint64 `json:"rate"`
	Dust         uint64 `json:"dust"`
	Pricing      string `json:"pricing"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newVaultResponse(v *domain.Vault, b *domain.TokenVaultBinding) vaultResponse {
	resp := vaultResponse{
		Address:       v.Address.String(),
		Authority:     v.Authority.String(),
		NativeBalance: v.NativeBalance,
	}
	if b != nil {
		resp.TokenVault = b.Address.String()
		resp.TokenMint = b.TokenMint.String()
	}
	return resp
}

func newEntryResponse(e *domain.LedgerEntry) entryResponse {
	return entryResponse{
		EntryID:      e.EntryID,
		Vault:        e.VaultAddress,
		Seq:          e.Seq,
		Kind:         e.Kind.String(),
		Caller:       e.Caller,
		AmountNative: e.AmountNative,
		AmountToken:  e.AmountToken,
		Rate:         e.Rate,
		Dust:         e.Dust,
		BalanceAfter: e.BalanceAfter,
		Timestamp:    e.Timestamp,
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !s.decode(w, r, &req) {
		return
	}
	admin, ok := s.identity(w, r, "admin", req.Admin)
	if !ok {
		return
	}
	mint, ok := s.identity(w, r, "mint", req.Mint)
	if !ok {
		return
	}

	v, b, err := s.svc.Initialize(r.Context(), admin, mint)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVaultResponse(v, b))
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.vaultAddress(w, r)
	if !ok {
		return
	}
	v, b, err := s.svc.GetVault(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVaultResponse(v, b))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, s.svc.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, s.svc.Withdraw)
}

type amountOp func(ctx context.Context, vaultAddr, caller domain.Identity, amount uint64) (*domain.LedgerEntry, error)

func (s *Server) handleAmount(w http.ResponseWriter, r *http.Request, op amountOp) {
	addr, ok := s.vaultAddress(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.identity(w, r, "caller", req.Caller)
	if !ok {
		return
	}

	e, err := op(r.Context(), addr, caller, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(e))
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.vaultAddress(w, r)
	if !ok {
		return
	}
	var req swapRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := s.identity(w, r, "caller", req.Caller)
	if !ok {
		return
	}

	e, err := s.svc.BuyNative(r.Context(), addr, caller, req.AmountToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(e))
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.vaultAddress(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	afterSeq, err := parseInt(q.Get("after_seq"), 0)
	if err != nil || afterSeq < 0 {
		s.badRequest(w, r, "after_seq must be a non-negative integer")
		return
	}
	limit, err := parseInt(q.Get("limit"), defaultLedgerLimit)
	if err != nil || limit <= 0 {
		s.badRequest(w, r, "limit must be a positive integer")
		return
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}

	entries, err := s.svc.Ledger(r.Context(), addr, afterSeq, int(limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponses(entries))
}

func newEntryResponses(entries []*domain.LedgerEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryResponse(e))
	}
	return out
}

// handleActivity serves analytics rows for a vault within [from, to] unix ms.
// An omitted bound is open.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.vaultAddress(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from, err := parseInt(q.Get("from"), 0)
	if err != nil || from < 0 {
		s.badRequest(w, r, "from must be a non-negative integer")
		return
	}
	to, err := parseInt(q.Get("to"), math.MaxInt64)
	if err != nil || to < 0 {
		s.badRequest(w, r, "to must be a non-negative integer")
		return
	}

	entries, err := s.svc.Activity(r.Context(), addr, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponses(entries))
}

type dustResponse struct {
	Vault     string `json:"vault"`
	SwapCount int64  `json:"swap_count"`
	TokensIn  uint64 `json:"tokens_in"`
	NativeOut uint64 `json:"native_out"`
	Dust      uint64 `json:"dust"`
}

func (s *Server) handleDust(w http.ResponseWriter, r *http.Request) {
	totals, err := s.svc.DustTotals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]dustResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, dustResponse{
			Vault:     t.VaultAddress,
			SwapCount: t.SwapCount,
			TokensIn:  t.TokensIn,
			NativeOut: t.NativeOut,
			Dust:      t.Dust,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type verifyResponse struct {
	Vault           string   `json:"vault"`
	Entries         int      `json:"entries"`
	Match           bool     `json:"match"`
	StoredBalance   uint64   `json:"stored_balance"`
	ReplayedBalance uint64   `json:"replayed_balance"`
	Divergences     []string `json:"divergences,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.vaultAddress(w, r)
	if !ok {
		return
	}
	res, err := s.verifier.VerifyVault(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := verifyResponse{
		Vault:           res.Vault,
		Entries:         res.Entries,
		Match:           res.Match,
		StoredBalance:   res.StoredBalance,
		ReplayedBalance: res.ReplayedBalance,
	}
	for _, d := range res.Divergences {
		resp.Divergences = append(resp.Divergences, d.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount_token"), 10, 64)
	if err != nil {
		s.badRequest(w, r, "amount_token must be an unsigned integer")
		return
	}

	st, err := s.svc.Quote(r.Context(), amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		AmountToken:  st.AmountToken,
		AmountNative: st.AmountNative,
		Rate:         st.Rate,
		Dust:         st.Dust,
		Pricing:      s.svc.PricingDescription(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.badRequest(w, r, "invalid payload")
		return false
	}
	return true
}

func (s *Server) identity(w http.ResponseWriter, r *http.Request, field, value string) (domain.Identity, bool) {
	id, err := domain.ParseIdentity(value)
	if err != nil {
		s.badRequest(w, r, fmt.Sprintf("%s: %v", field, err))
		return domain.Identity{}, false
	}
	return id, true
}

func (s *Server) vaultAddress(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	return s.identity(w, r, "address", chi.URLParam(r, "address"))
}

func parseInt(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, RequestID: requestIDFrom(r.Context())})
}

// statusFor maps settlement errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStalePrice), errors.Is(err, settlement.ErrAnalyticsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, settlement.ErrCompensationFailed), errors.Is(err, swap.ErrCompensationFailed),
		errors.Is(err, settlement.ErrPersistFailed):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrInvalidPriceFeed), errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	reqID := requestIDFrom(r.Context())
	entry := s.log.WithError(err).WithFields(logrus.Fields{
		"request_id": reqID,
		"path":       r.URL.Path,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: reqID})
}
