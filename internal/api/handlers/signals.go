package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dxbintel/propsignal/internal/contracts"
	"github.com/dxbintel/propsignal/pkg/logger"
)

// SignalHandler serves signal and target read/ack endpoints.
type SignalHandler struct {
	signals contracts.SignalStore
	targets contracts.TargetStore
	logger  *logger.Logger
}

// NewSignalHandler creates a signal handler.
func NewSignalHandler(signals contracts.SignalStore, targets contracts.TargetStore, log *logger.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		targets: targets,
		logger:  log,
	}
}

// List returns recent signals, optionally filtered by status.
// GET /api/signals?status=new&limit=50
func (h *SignalHandler) List(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)
	if org == "" {
		respondError(w, http.StatusBadRequest, "X-Org-ID header is required")
		return
	}

	status := contracts.SignalStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)

	signals, err := h.signals.List(r.Context(), org, status, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list signals")
		respondError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"signals": signals,
		"count":   len(signals),
	})
}

// Acknowledge marks a signal acknowledged.
// POST /api/signals/{id}/acknowledge
func (h *SignalHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, contracts.StatusAcknowledged)
}

// Dismiss marks a signal dismissed.
// POST /api/signals/{id}/dismiss
func (h *SignalHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, contracts.StatusDismissed)
}

// updateStatus mutates the operator-owned status field; measurement fields
// and the signal key are never touched from the API.
func (h *SignalHandler) updateStatus(w http.ResponseWriter, r *http.Request, status contracts.SignalStatus) {
	org := orgID(r)
	if org == "" {
		respondError(w, http.StatusBadRequest, "X-Org-ID header is required")
		return
	}
	signalID := mux.Vars(r)["id"]

	if err := h.signals.UpdateStatus(r.Context(), org, signalID, status); err != nil {
		h.logger.WithError(err).WithField("signal_id", signalID).Error("Failed to update signal status")
		respondError(w, http.StatusNotFound, "signal not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     signalID,
		"status": string(status),
	})
}

// ListTargets returns targets not yet published.
// GET /api/targets
func (h *SignalHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)
	if org == "" {
		respondError(w, http.StatusBadRequest, "X-Org-ID header is required")
		return
	}

	targets, err := h.targets.ListNew(r.Context(), org)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list targets")
		respondError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"targets": targets,
		"count":   len(targets),
	})
}
