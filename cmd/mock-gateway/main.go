package main

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/wallet"
)

type transferRequest struct {
	Reference   string `json:"reference"`
	Network     string `json:"network"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// settlements remembers the reference of every accepted transfer so a retry
// gets the original settlement back.
type settlements struct {
	mu   sync.Mutex
	refs map[string]string
}

func (s *settlements) settle(reference string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[reference]; ok {
		return ref
	}
	ref := "mock-" + uuid.NewString()
	s.refs[reference] = ref
	return ref
}

func main() {
	logging.Init("mock-gateway", "info", os.Getenv("APP_ENV"))

	validator, err := wallet.NewValidator(envOr("BITCOIN_NET", "mainnet"))
	if err != nil {
		slog.Error("invalid bitcoin network", "error", err)
		os.Exit(1)
	}
	failureRate, _ := strconv.ParseFloat(os.Getenv("MOCK_FAILURE_RATE"), 64)
	store := &settlements{refs: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /transfers", func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !domain.ValidAmount(amount) || req.Reference == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount or reference"})
			return
		}
		if !validator.VerifyAddressFormat(domain.WalletNetwork(req.Network), req.Destination) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid destination"})
			return
		}
		if failureRate > 0 && rand.Float64() < failureRate {
			slog.Warn("simulating gateway failure", "reference", req.Reference)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
			return
		}

		ref := store.settle(req.Reference)
		slog.Info("transfer settled",
			"reference", req.Reference,
			"settlement_ref", ref,
			"network", req.Network,
			"amount", req.Amount,
			"currency", req.Currency,
		)
		writeJSON(w, http.StatusCreated, map[string]string{"settlement_ref": ref})
	})

	addr := ":" + envOr("PORT", "8081")
	slog.Info("mock gateway started", "addr", addr, "failure_rate", failureRate)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
