// Package handler implements the HTTP endpoints of the plate service. Each
// store-touching handler performs exactly one repository call.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/metrics"
	"plateserver/internal/repository"
)

const maxBodyBytes = 1 << 20

// LiveFeed delivers stored detections to websocket viewers.
type LiveFeed interface {
	Register(client *websocket.Conn) bool
	Unregister(client *websocket.Conn)
	Broadcast(message []byte)
}

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	detections  repository.DetectionRepository
	authorized  repository.AuthorizedPlateRepository
	store       Pinger
	live        LiveFeed
	metrics     *metrics.Metrics
	logger      *logger.Logger
	platesLimit int
}

// Deps lists what New needs. Store and Live may be nil.
type Deps struct {
	Detections  repository.DetectionRepository
	Authorized  repository.AuthorizedPlateRepository
	Store       Pinger
	Live        LiveFeed
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	PlatesLimit int
}

// New builds a Handler from deps. A missing logger discards output and an
// out-of-range PlatesLimit falls back to the maximum.
func New(deps Deps) *Handler {
	limit := deps.PlatesLimit
	if limit <= 0 || limit > config.MaxPlatesLimit {
		limit = config.MaxPlatesLimit
	}
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		detections:  deps.Detections,
		authorized:  deps.Authorized,
		store:       deps.Store,
		live:        deps.Live,
		metrics:     deps.Metrics,
		logger:      log,
		platesLimit: limit,
	}
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error encoding JSON response: %v", err)
	}
}

func (h *Handler) writeDetail(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, detailResponse{Detail: detail})
}

// decodeBody reads a JSON body into dst. Failures are answered with 422.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
