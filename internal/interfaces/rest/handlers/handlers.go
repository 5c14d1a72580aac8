// Package handlers exposes the registry's HTTP surface: the driver-portal
// payment endpoints, the admin entry-lifecycle endpoints and the officials
// equipment-scan endpoints.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/interfaces/rest/middleware"
)

type Handlers struct {
	initiationService   *services.InitiationService
	notificationService *services.NotificationService
	lifecycleService    *services.LifecycleService
	equipmentService    *services.EquipmentService
	failedNotifications application.FailedNotificationSink
	logger              *slog.Logger
}

func NewHandlers(
	initiationService *services.InitiationService,
	notificationService *services.NotificationService,
	lifecycleService *services.LifecycleService,
	equipmentService *services.EquipmentService,
	failedNotifications application.FailedNotificationSink,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		initiationService:   initiationService,
		notificationService: notificationService,
		lifecycleService:    lifecycleService,
		equipmentService:    equipmentService,
		failedNotifications: failedNotifications,
		logger:              logger,
	}
}

// RegisterRoutes mounts every endpoint. The gateway-facing endpoints stay
// open; everything else sits behind the officials token.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux, officialsToken string) {
	mux.HandleFunc("GET /api/initiateRacePayment", h.InitiateRacePayment)
	mux.HandleFunc("POST /api/paymentNotify", h.PaymentNotify)

	auth := middleware.OfficialsAuth(officialsToken, h.logger)

	protected := func(handler http.HandlerFunc) http.Handler {
		return auth(handler)
	}

	mux.Handle("POST /api/admin/reconcilePayment", protected(h.ReconcilePayment))
	mux.Handle("POST /api/registerFreeRaceEntry", protected(h.RegisterFreeRaceEntry))
	mux.Handle("POST /api/adminAddRaceEntry", protected(h.AdminAddRaceEntry))
	mux.Handle("POST /api/updateRaceEntry", protected(h.UpdateRaceEntry))
	mux.Handle("POST /api/updateRaceEntryAndResend", protected(h.UpdateRaceEntryAndResend))
	mux.Handle("POST /api/deleteRaceEntry", protected(h.DeleteRaceEntry))
	mux.Handle("POST /api/sendRaceTicketsEmail", protected(h.SendRaceTicketsEmail))

	mux.Handle("GET /api/lookupTicket", protected(h.LookupTicket))
	mux.Handle("GET /api/lookupByRaceNumber", protected(h.LookupByRaceNumber))
	mux.Handle("POST /api/assignEngine", protected(h.AssignEngine))
	mux.Handle("POST /api/returnEngine", protected(h.ReturnEngine))
	mux.Handle("POST /api/reportEngineIssue", protected(h.ReportEngineIssue))
	mux.Handle("POST /api/assignReplacementEngine", protected(h.AssignReplacementEngine))
	mux.Handle("POST /api/assignTransponder", protected(h.AssignTransponder))
	mux.Handle("POST /api/assignTyres", protected(h.AssignTyres))
	mux.Handle("POST /api/markFuelCollected", protected(h.MarkFuelCollected))

	mux.Handle("GET /api/equipmentByDriver", protected(h.EquipmentByDriver))
	mux.Handle("GET /api/equipmentByItem", protected(h.EquipmentByItem))
	mux.Handle("GET /api/engineHistory", protected(h.EngineHistory))
}
