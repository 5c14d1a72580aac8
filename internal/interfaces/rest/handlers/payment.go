package handlers

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/interfaces/rest"
)

// InitiateRacePayment builds a pending entry and responds with the
// auto-submitting gateway form. The driver portal navigates the browser
// here, so the response is HTML, not the JSON envelope.
func (h *Handlers) InitiateRacePayment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cmd := services.InitiatePaymentCommand{
		DriverID:  q.Get("driver_id"),
		EventID:   q.Get("event_id"),
		RaceClass: q.Get("race_class"),
		Email:     q.Get("email"),
		Amount:    q.Get("amount"),
		Items:     splitItems(q.Get("items")),
	}

	form, err := h.initiationService.Initiate(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(form))
}

// PaymentNotify receives the gateway's server-to-server notification. The
// gateway retries anything that is not a 200, and its retries never carry
// more information than the first attempt, so failures are acknowledged too
// and captured in the failed-notification log instead.
func (h *Handlers) PaymentNotify(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic during notification processing", "panic", rec)
			h.recordFailedNotification(r, fmt.Sprintf("panic: %v", rec), string(debug.Stack()))
		}
		w.WriteHeader(http.StatusOK)
	}()

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse notification form", "error", err)
		return
	}

	if err := h.notificationService.Handle(r.Context(), r.PostForm); err != nil {
		h.logger.Error("notification processing failed", "error", err)
		h.recordFailedNotification(r, err.Error(), "")
	}
}

func (h *Handlers) recordFailedNotification(r *http.Request, cause, stack string) {
	if err := h.failedNotifications.Append(application.FailedNotification{
		ReceivedAt: time.Now(),
		Payload:    r.PostForm,
		Headers:    r.Header,
		Error:      cause,
		Stack:      stack,
	}); err != nil {
		h.logger.Error("failed to record notification failure", "error", err)
	}
}

func splitItems(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
