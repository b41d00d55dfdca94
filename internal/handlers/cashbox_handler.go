package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cashbox-api/internal/models"
	"cashbox-api/internal/services"
)

// CashBoxHandler handles cash box endpoints
type CashBoxHandler struct {
	service *services.CashBoxService
	log     *zap.Logger
}

func NewCashBoxHandler(service *services.CashBoxService, log *zap.Logger) *CashBoxHandler {
	return &CashBoxHandler{service: service, log: log}
}

type openCashBoxBody struct {
	WorkDate string `json:"work_date" validate:"required,datetime=2006-01-02"`
}

type incomeBody struct {
	ClientID   string               `json:"client_id" validate:"required"`
	ClientName string               `json:"client_name" validate:"required"`
	Amount     models.Money         `json:"amount" validate:"gt=0"`
	Method     models.PaymentMethod `json:"method" validate:"required"`
}

type expenseBody struct {
	Concept         string                 `json:"concept" validate:"required,max=200"`
	Amount          models.Money           `json:"amount" validate:"gt=0"`
	ServiceCategory models.ServiceCategory `json:"service_category" validate:"required"`
	Description     string                 `json:"description" validate:"max=500"`
}

// countsBody requires both counts to be entered; a missing figure is never
// read as zero.
type countsBody struct {
	Cash    *models.Money `json:"cash" validate:"required"`
	Digital *models.Money `json:"digital" validate:"required"`
}

type closeBody struct {
	Counts *countsBody `json:"closing_counts" validate:"required"`
	Notes  string      `json:"notes" validate:"max=500"`
}

func (h *CashBoxHandler) Open(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body openCashBoxBody
	if err := decode(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	box, err := h.service.OpenCashBox(r.Context(), p, body.WorkDate)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, box)
}

// Current returns the caller's box for ?date=, or null when none exists.
func (h *CashBoxHandler) Current(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	box, err := h.service.Current(r.Context(), p, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, box)
}

func (h *CashBoxHandler) History(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	boxes, err := h.service.History(r.Context(), p, r.URL.Query().Get("collector_id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, boxes)
}

func (h *CashBoxHandler) Day(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	sums, err := h.service.DayOverview(r.Context(), p, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, sums)
}

func (h *CashBoxHandler) Summary(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	sum, err := h.service.Summary(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, sum)
}

func (h *CashBoxHandler) RecordIncome(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body incomeBody
	if err := decode(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	box, err := h.service.RecordIncome(r.Context(), p, chi.URLParam(r, "id"), body.ClientID, body.ClientName, body.Amount, body.Method)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, box)
}

func (h *CashBoxHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body expenseBody
	if err := decode(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	box, err := h.service.RecordExpense(r.Context(), p, chi.URLParam(r, "id"), body.Concept, body.Amount, body.ServiceCategory, body.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, box)
}

func (h *CashBoxHandler) RemoveExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	box, err := h.service.RemoveExpense(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "expenseID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, box)
}

func (h *CashBoxHandler) Close(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body closeBody
	if err := decode(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	counts := models.ClosingCounts{Cash: *body.Counts.Cash, Digital: *body.Counts.Digital}
	box, err := h.service.CloseCashBox(r.Context(), p, chi.URLParam(r, "id"), counts, body.Notes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, box)
}
