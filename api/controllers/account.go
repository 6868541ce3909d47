package controllers

import (
	"net/http"

	"github.com/groenvelt/storefront-bff/api/middleware"
	"github.com/groenvelt/storefront-bff/api/responses"
	"github.com/groenvelt/storefront-bff/api/validators"
	"github.com/groenvelt/storefront-bff/internal/accounts"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

func Profile(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
			return
		}

		customer, err := svc.Profile(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

type updateProfileRequest struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Billing   any    `json:"billing,omitempty"`
	Shipping  any    `json:"shipping,omitempty"`
}

func UpdateProfile(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
			return
		}

		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := map[string]any{}
		if payload.FirstName != "" {
			input["first_name"] = payload.FirstName
		}
		if payload.LastName != "" {
			input["last_name"] = payload.LastName
		}
		if payload.Billing != nil {
			input["billing"] = payload.Billing
		}
		if payload.Shipping != nil {
			input["shipping"] = payload.Shipping
		}
		if len(input) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}

		customer, err := svc.UpdateProfile(r.Context(), customerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func AccountOrders(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.ParseQueryInt(r, "per_page", 10, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.Orders(r.Context(), customerID, page, perPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}
