package controllers

import (
	"net/http"
	"strings"

	"github.com/groenvelt/storefront-bff/api/middleware"
	"github.com/groenvelt/storefront-bff/api/responses"
	"github.com/groenvelt/storefront-bff/internal/checkout"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

// StartCheckout snapshots the cart into an order and returns the
// payment redirect. Works for guests and logged-in customers alike;
// the customer id is attached when present.
func StartCheckout(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.CartSessionFromContext(r.Context())
		customerID := middleware.CustomerIDFromContext(r.Context())

		handoff, err := svc.Start(r.Context(), sessionID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, handoff)
	}
}

// ConfirmCheckout is hit by the return page after the hosted payment.
func ConfirmCheckout(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID := strings.TrimSpace(r.URL.Query().Get("payment_id"))
		if paymentID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing payment id"))
			return
		}

		status, err := svc.Confirm(r.Context(), middleware.CartSessionFromContext(r.Context()), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// MollieWebhook receives payment status changes. Mollie posts
// form-encoded with a single id field and expects a bare 200.
func MollieWebhook(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}
		paymentID := strings.TrimSpace(r.PostFormValue("id"))
		if paymentID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing payment id"))
			return
		}

		if err := svc.HandleWebhook(r.Context(), paymentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
