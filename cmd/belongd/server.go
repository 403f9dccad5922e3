package main

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"belongchain/config"
	"belongchain/core/events"
)

func (n *node) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", n.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/venues/{address}", n.handleVenue)
		r.Post("/oracle/price", n.handleSetPrice)
	})
	return r
}

func (n *node) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"network": n.cfg.NetworkName,
	})
}

type venueResponse struct {
	Registered       bool   `json:"registered"`
	PaymentType      uint8  `json:"paymentType,omitempty"`
	BountyType       uint8  `json:"bountyType,omitempty"`
	RemainingCredits uint64 `json:"remainingCredits"`
	EscrowedUSD      string `json:"escrowedUSD"`
	EscrowedLong     string `json:"escrowedLong"`
	Tier             string `json:"tier"`
}

func (n *node) handleVenue(w http.ResponseWriter, r *http.Request) {
	venue, err := config.DecodeAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, registered, err := n.engine.VenueInfoOf(venue)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	deposit, err := n.escrow.Balance(venue)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tier, err := n.engine.TierOf(venue)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := venueResponse{
		Registered:   registered,
		EscrowedUSD:  deposit.USDTokenDeposits.String(),
		EscrowedLong: deposit.LongDeposits.String(),
		Tier:         tier.String(),
	}
	if registered {
		resp.PaymentType = uint8(info.Rules.PaymentType)
		resp.BountyType = uint8(info.Rules.BountyType)
		resp.RemainingCredits = info.RemainingCredits
	}
	writeJSON(w, http.StatusOK, resp)
}

type priceRequest struct {
	Answer string `json:"answer"`
}

func (n *node) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	answer, ok := new(big.Int).SetString(req.Answer, 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid answer"})
		return
	}
	if err := n.feed.Set(answer, time.Now()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n.logger.Info("Oracle price updated", slog.String("answer", answer.String()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// logEmitter forwards engine events into the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func newLogEmitter(logger *slog.Logger) logEmitter {
	return logEmitter{logger: logger}
}

func (l logEmitter) Emit(evt events.Event) {
	if l.logger == nil || evt == nil {
		return
	}
	l.logger.Info("Engine event", slog.String("type", evt.EventType()))
}
