package handlers

import (
	"net/http"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/interfaces/rest"
)

// LookupTicket resolves a scanned rental ticket barcode to its entry and
// driver.
func (h *Handlers) LookupTicket(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		rest.WriteError(w, application.NewValidationError("barcode is required"), h.logger)
		return
	}

	result, err := h.equipmentService.Lookup(r.Context(), barcode, r.URL.Query().Get("scanned_by"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

// LookupByRaceNumber serves the scrutineering tyre check.
func (h *Handlers) LookupByRaceNumber(w http.ResponseWriter, r *http.Request) {
	raceNumber := r.URL.Query().Get("race_number")
	if raceNumber == "" {
		rest.WriteError(w, application.NewValidationError("race_number is required"), h.logger)
		return
	}

	result, err := h.equipmentService.LookupByRaceNumber(r.Context(), raceNumber)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

type assignEngineRequest struct {
	TicketBarcode string `json:"ticket_barcode"`
	EngineSerial  string `json:"engine_serial"`
	EntryID       string `json:"entry_id"`
	ScannedBy     string `json:"scanned_by"`
}

func (h *Handlers) AssignEngine(w http.ResponseWriter, r *http.Request) {
	var req assignEngineRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.equipmentService.AssignEngine(r.Context(), services.AssignEngineCommand{
		TicketBarcode: req.TicketBarcode,
		EngineSerial:  req.EngineSerial,
		EntryID:       req.EntryID,
		ScannedBy:     req.ScannedBy,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

type returnEngineRequest struct {
	EngineSerial string `json:"engine_serial"`
	ScannedBy    string `json:"scanned_by"`
}

func (h *Handlers) ReturnEngine(w http.ResponseWriter, r *http.Request) {
	var req returnEngineRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.equipmentService.ReturnEngine(r.Context(), req.EngineSerial, req.ScannedBy); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

type engineIssueRequest struct {
	EngineSerial string `json:"engine_serial"`
	Issue        string `json:"issue"`
	ScannedBy    string `json:"scanned_by"`
}

// ReportEngineIssue returns the holder's identifiers so the console can go
// straight to assigning the replacement.
func (h *Handlers) ReportEngineIssue(w http.ResponseWriter, r *http.Request) {
	var req engineIssueRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	driverID, entryID, err := h.equipmentService.ReportEngineIssue(r.Context(), req.EngineSerial, req.Issue, req.ScannedBy)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{
		"driver_id": driverID,
		"entry_id":  entryID,
	})
}

type replaceEngineRequest struct {
	ReplacementSerial string `json:"replacement_serial"`
	ReturnedSerial    string `json:"returned_serial"`
	EntryID           string `json:"entry_id"`
	ScannedBy         string `json:"scanned_by"`
}

func (h *Handlers) AssignReplacementEngine(w http.ResponseWriter, r *http.Request) {
	var req replaceEngineRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.equipmentService.ReplaceEngine(r.Context(), services.ReplaceEngineCommand{
		ReplacementSerial: req.ReplacementSerial,
		ReturnedSerial:    req.ReturnedSerial,
		EntryID:           req.EntryID,
		ScannedBy:         req.ScannedBy,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

type assignTransponderRequest struct {
	TicketBarcode     string `json:"ticket_barcode"`
	TransponderSerial string `json:"transponder_serial"`
	EntryID           string `json:"entry_id"`
	ScannedBy         string `json:"scanned_by"`
}

func (h *Handlers) AssignTransponder(w http.ResponseWriter, r *http.Request) {
	var req assignTransponderRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.equipmentService.AssignTransponder(r.Context(), services.AssignTransponderCommand{
		TicketBarcode:     req.TicketBarcode,
		TransponderSerial: req.TransponderSerial,
		EntryID:           req.EntryID,
		ScannedBy:         req.ScannedBy,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

type assignTyresRequest struct {
	TicketBarcode string `json:"ticket_barcode"`
	FrontLeft     string `json:"front_left"`
	FrontRight    string `json:"front_right"`
	RearLeft      string `json:"rear_left"`
	RearRight     string `json:"rear_right"`
	EntryID       string `json:"entry_id"`
	ScannedBy     string `json:"scanned_by"`
}

func (h *Handlers) AssignTyres(w http.ResponseWriter, r *http.Request) {
	var req assignTyresRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.equipmentService.RegisterTyres(r.Context(), services.RegisterTyresCommand{
		TicketBarcode: req.TicketBarcode,
		FrontLeft:     req.FrontLeft,
		FrontRight:    req.FrontRight,
		RearLeft:      req.RearLeft,
		RearRight:     req.RearRight,
		EntryID:       req.EntryID,
		ScannedBy:     req.ScannedBy,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

type fuelRequest struct {
	TicketBarcode string `json:"ticket_barcode"`
	EntryID       string `json:"entry_id"`
	ScannedBy     string `json:"scanned_by"`
}

func (h *Handlers) MarkFuelCollected(w http.ResponseWriter, r *http.Request) {
	var req fuelRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.equipmentService.CollectFuel(r.Context(), services.CollectFuelCommand{
		TicketBarcode: req.TicketBarcode,
		EntryID:       req.EntryID,
		ScannedBy:     req.ScannedBy,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

func (h *Handlers) EquipmentByDriver(w http.ResponseWriter, r *http.Request) {
	driverID := r.URL.Query().Get("driver_id")
	if driverID == "" {
		rest.WriteError(w, application.NewValidationError("driver_id is required"), h.logger)
		return
	}

	entries, err := h.equipmentService.EquipmentByDriver(r.Context(), driverID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handlers) EquipmentByItem(w http.ResponseWriter, r *http.Request) {
	item := r.URL.Query().Get("item")
	if item == "" {
		rest.WriteError(w, application.NewValidationError("item is required"), h.logger)
		return
	}

	entries, err := h.equipmentService.EquipmentByItem(r.Context(), domain.RentalItem(item))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handlers) EngineHistory(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial")
	if serial == "" {
		rest.WriteError(w, application.NewValidationError("serial is required"), h.logger)
		return
	}

	records, err := h.equipmentService.EngineHistory(r.Context(), serial)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, records)
}
