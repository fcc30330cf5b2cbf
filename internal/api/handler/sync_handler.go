package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/mavuno/agrolink/internal/api/middleware"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/service"
)

// SyncHandler accepts diagnosis submissions into the offline queue and
// reports sync progress.
type SyncHandler struct {
	svc    *service.DiagnosisService
	logger *zap.Logger
}

func NewSyncHandler(svc *service.DiagnosisService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, logger: logger}
}

// Submit handles POST /api/v1/diagnoses
//
// The submission is queued and acknowledged immediately; it is diagnosed
// when the queue drains.
//
// @Summary  Queue a crop photo for diagnosis
// @Tags     sync
// @Accept   json
// @Produce  json
// @Param    body  body      domain.DiagnosisSubmission  true  "Photo (base64) and optional note"
// @Success  202   {object}  service.Receipt
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/diagnoses [post]
func (h *SyncHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.DiagnosisSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	receipt, err := h.svc.Submit(r.Context(), sub)
	if err != nil {
		h.logger.Warn("queue diagnosis failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, receipt)
}

// Status handles GET /api/v1/sync
//
// @Summary  Offline queue length, drain and connectivity state
// @Tags     sync
// @Produce  json
// @Success  200  {object}  service.SyncStatus
// @Router   /api/v1/sync [get]
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Status())
}

// ListCases handles GET /api/v1/cases
//
// @Summary  Synced diagnosis cases, newest first
// @Tags     sync
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/cases [get]
func (h *SyncHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.svc.Cases(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list cases")
		return
	}
	respondList(w, cases)
}

// GetCase handles GET /api/v1/cases/{id}
//
// @Summary  Get a synced case by ID
// @Tags     sync
// @Produce  json
// @Param    id   path      string  true  "Case ID"
// @Success  200  {object}  domain.DiagnosisCase
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/cases/{id} [get]
func (h *SyncHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Case(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
