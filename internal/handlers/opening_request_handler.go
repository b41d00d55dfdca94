package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cashbox-api/internal/models"
	"cashbox-api/internal/services"
)

// OpeningRequestHandler handles opening request endpoints
type OpeningRequestHandler struct {
	service *services.CashBoxService
	log     *zap.Logger
}

func NewOpeningRequestHandler(service *services.CashBoxService, log *zap.Logger) *OpeningRequestHandler {
	return &OpeningRequestHandler{service: service, log: log}
}

type submitRequestBody struct {
	WorkDate     string              `json:"work_date" validate:"required,datetime=2006-01-02"`
	OpeningFloat models.OpeningFloat `json:"opening_float"`
	Notes        string              `json:"notes" validate:"max=500"`
}

type rejectRequestBody struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *OpeningRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body submitRequestBody
	if err := decode(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := h.service.RequestOpening(r.Context(), p, body.WorkDate, body.OpeningFloat, body.Notes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, req)
}

func (h *OpeningRequestHandler) Pending(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	reqs, err := h.service.PendingRequests(r.Context(), p)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, reqs)
}

func (h *OpeningRequestHandler) Current(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	view, err := h.service.CurrentRequest(r.Context(), p, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (h *OpeningRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	req, err := h.service.ApproveRequest(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, req)
}

func (h *OpeningRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body rejectRequestBody
	if err := decode(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := h.service.RejectRequest(r.Context(), p, chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, req)
}
