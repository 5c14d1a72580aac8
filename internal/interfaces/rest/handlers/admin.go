package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/interfaces/rest"
)

func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rest.WriteError(w, application.NewValidationError("invalid request body"), h.logger)
		return false
	}
	return true
}

type reconcileRequest struct {
	EntryID          string `json:"entry_id"`
	PaymentReference string `json:"payment_reference"`
	AmountPaid       string `json:"amount_paid"`
	Actor            string `json:"actor"`
}

// ReconcilePayment is the manual stand-in for a webhook that never arrived.
func (h *Handlers) ReconcilePayment(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	entry, err := h.lifecycleService.Reconcile(r.Context(), services.ReconcileCommand{
		EntryID:          req.EntryID,
		PaymentReference: req.PaymentReference,
		AmountPaid:       req.AmountPaid,
		Actor:            req.Actor,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

type freeEntryRequest struct {
	DriverID  string   `json:"driver_id"`
	EventID   string   `json:"event_id"`
	RaceClass string   `json:"race_class"`
	TeamCode  string   `json:"team_code"`
	Items     []string `json:"items"`
}

func (h *Handlers) RegisterFreeRaceEntry(w http.ResponseWriter, r *http.Request) {
	var req freeEntryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	entry, err := h.lifecycleService.RegisterFreeEntry(r.Context(), services.FreeEntryCommand{
		DriverID:  req.DriverID,
		EventID:   req.EventID,
		RaceClass: req.RaceClass,
		TeamCode:  req.TeamCode,
		Items:     req.Items,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

type manualEntryRequest struct {
	DriverID   string   `json:"driver_id"`
	EventID    string   `json:"event_id"`
	RaceClass  string   `json:"race_class"`
	RaceNumber string   `json:"race_number"`
	Items      []string `json:"items"`
	Actor      string   `json:"actor"`
}

func (h *Handlers) AdminAddRaceEntry(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	entry, err := h.lifecycleService.ManualInsert(r.Context(), services.ManualEntryCommand{
		DriverID:   req.DriverID,
		EventID:    req.EventID,
		RaceClass:  req.RaceClass,
		RaceNumber: req.RaceNumber,
		Items:      req.Items,
		Actor:      req.Actor,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

type updateEntryRequest struct {
	EntryID    string  `json:"entry_id"`
	RaceClass  *string `json:"race_class"`
	RaceNumber *string `json:"race_number"`
	AmountPaid *string `json:"amount_paid"`
	Actor      string  `json:"actor"`
}

func (h *Handlers) UpdateRaceEntry(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	entry, err := h.lifecycleService.UpdateEntry(r.Context(), services.UpdateEntryCommand{
		EntryID:    req.EntryID,
		RaceClass:  req.RaceClass,
		RaceNumber: req.RaceNumber,
		AmountPaid: req.AmountPaid,
		Actor:      req.Actor,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

type updateAndResendRequest struct {
	EntryID    string   `json:"entry_id"`
	Items      []string `json:"items"`
	AmountPaid string   `json:"amount_paid"`
	Actor      string   `json:"actor"`
}

func (h *Handlers) UpdateRaceEntryAndResend(w http.ResponseWriter, r *http.Request) {
	var req updateAndResendRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	entry, err := h.lifecycleService.UpdateAndResend(r.Context(), services.UpdateAndResendCommand{
		EntryID:    req.EntryID,
		Items:      req.Items,
		AmountPaid: req.AmountPaid,
		Actor:      req.Actor,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

type deleteEntryRequest struct {
	EntryID string `json:"entry_id"`
	Actor   string `json:"actor"`
}

// DeleteRaceEntry is a soft cancel; the row stays for the audit trail.
func (h *Handlers) DeleteRaceEntry(w http.ResponseWriter, r *http.Request) {
	var req deleteEntryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.lifecycleService.SoftCancel(r.Context(), req.EntryID, req.Actor); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

type resendRequest struct {
	EntryID string `json:"entry_id"`
}

func (h *Handlers) SendRaceTicketsEmail(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.lifecycleService.ResendTickets(r.Context(), req.EntryID); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}
