package rpc

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vulnera/core"
	"vulnera/core/state"
	"vulnera/core/types"
	"vulnera/crypto"
	"vulnera/native/bounty"
)

const requestBodyLimit = 1 << 20 // 1 MiB

// Server exposes the node over HTTP: transaction submission, confirmation
// polling, account and vault reads, and the event log the reconciler tails.
type Server struct {
	runtime *core.Runtime
	logger  *slog.Logger
	router  chi.Router
}

// NewServer wires the HTTP routes around a runtime.
func NewServer(runtime *core.Runtime, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{runtime: runtime, logger: logger}
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/transactions", s.handleSubmitTransaction)
		r.Get("/transactions/{id}", s.handleGetTransaction)
		r.Get("/accounts/{address}", s.handleGetAccount)
		r.Get("/vaults/{owner}", s.handleGetVault)
		r.Get("/events", s.handleListEvents)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorBody struct {
	Code    *uint32 `json:"code,omitempty"`
	Message string  `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorEnvelope{Error: errorBody{Message: message}})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type submitTransactionRequest struct {
	Transaction types.Transaction `json:"transaction"`
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req submitTransactionRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestBodyLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid transaction payload: "+err.Error())
		return
	}
	status, err := s.runtime.Execute(&req.Transaction)
	if err != nil {
		// The transaction did not land at all: bad signatures, unknown
		// program, malformed message.
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txID := strings.TrimSpace(chi.URLParam(r, "id"))
	status, ok := s.runtime.Status(txID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

type accountResult struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	Owner    string `json:"owner"`
	Data     string `json:"data,omitempty"`
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	key, err := crypto.ParsePublicKey(strings.TrimSpace(chi.URLParam(r, "address")))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, ok, err := s.runtime.GetAccount(key)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	s.writeJSON(w, http.StatusOK, accountResult{
		Address:  key.String(),
		Lamports: account.Lamports,
		Owner:    account.Owner.String(),
		Data:     base64.StdEncoding.EncodeToString(account.Data),
	})
}

type vaultResult struct {
	Address      string `json:"address"`
	Owner        string `json:"owner"`
	EscrowAmount uint64 `json:"escrowAmount"`
	Lamports     uint64 `json:"lamports"`
	RentReserve  uint64 `json:"rentReserve"`
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	owner, err := crypto.ParsePublicKey(strings.TrimSpace(chi.URLParam(r, "owner")))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vaultKey := bounty.DeriveVaultAddress(owner)
	account, ok, err := s.runtime.GetAccount(vaultKey)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "vault not found")
		return
	}
	escrow, err := bounty.UnmarshalBountyEscrow(account.Data)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, vaultResult{
		Address:      vaultKey.String(),
		Owner:        escrow.Owner.String(),
		EscrowAmount: escrow.EscrowAmount,
		Lamports:     account.Lamports,
		RentReserve:  state.RentExemptMinimum(bounty.EscrowAccountSize),
	})
}

type eventsResult struct {
	Events []*types.Event `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid after parameter")
			return
		}
		after = parsed
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}
	events := s.runtime.EventsAfter(after, limit)
	if events == nil {
		events = []*types.Event{}
	}
	s.writeJSON(w, http.StatusOK, eventsResult{Events: events})
}
