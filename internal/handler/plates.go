package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"plateserver/internal/dto"
)

// ListPlates returns the newest detections, never more than the configured cap.
func (h *Handler) ListPlates(w http.ResponseWriter, r *http.Request) {
	limit := atoiDefault(r.URL.Query().Get("limit"), h.platesLimit)
	if limit > h.platesLimit {
		limit = h.platesLimit
	}

	detections, err := h.detections.List(r.Context(), limit)
	if err != nil {
		h.respondStoreError(w, opListPlates, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dto.NewPlateReads(detections))
}

// GetPlatesByTrackID returns every detection of one tracked object. An empty
// result is a 404, not an empty list.
func (h *Handler) GetPlatesByTrackID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "track_id")
	trackID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid track_id %q: must be an integer", raw))
		return
	}

	detections, err := h.detections.ListByTrackID(r.Context(), trackID)
	if err != nil {
		h.respondStoreError(w, opListPlatesByTrack, err)
		return
	}
	if len(detections) == 0 {
		h.writeDetail(w, http.StatusNotFound, fmt.Sprintf("No plates found with track_id %d", trackID))
		return
	}

	h.writeJSON(w, http.StatusOK, dto.NewPlateReads(detections))
}

// CreatePlate stores one detection and pushes it to live viewers.
func (h *Handler) CreatePlate(w http.ResponseWriter, r *http.Request) {
	var body dto.PlateCreate
	if !h.decodeBody(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		h.writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored, err := h.detections.Insert(r.Context(), body.Model())
	if err != nil {
		h.respondStoreError(w, opCreatePlate, err)
		return
	}

	read := dto.NewPlateRead(*stored)
	if h.metrics != nil {
		h.metrics.DetectionsCreated.Inc()
	}
	h.logger.Info("Stored plate %s (id=%d, track_id=%d)", read.Numberplate, read.ID, read.TrackID)

	if h.live != nil {
		if msg, err := json.Marshal(read); err == nil {
			h.live.Broadcast(msg)
		}
	}

	h.writeJSON(w, http.StatusCreated, read)
}

// ClearPlates removes every detection and resets the id sequence.
func (h *Handler) ClearPlates(w http.ResponseWriter, r *http.Request) {
	if err := h.detections.DeleteAll(r.Context()); err != nil {
		h.respondStoreError(w, opClearPlates, err)
		return
	}

	h.logger.Info("All plates cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ListMatchingPlates returns detections whose plate is on the allow-list.
func (h *Handler) ListMatchingPlates(w http.ResponseWriter, r *http.Request) {
	detections, err := h.detections.ListMatching(r.Context())
	if err != nil {
		h.respondStoreError(w, opListMatching, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dto.NewPlateReads(detections))
}
