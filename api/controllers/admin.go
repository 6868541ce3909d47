package controllers

import (
	"net/http"

	"github.com/groenvelt/storefront-bff/api/responses"
	"github.com/groenvelt/storefront-bff/internal/holiday"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

func ReloadHolidays(provider *holiday.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := provider.Reload(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		calendar := provider.Calendar()
		responses.WriteSuccess(w, map[string]any{
			"shipping_blocked": calendar.ShippingCount(),
			"delivery_blocked": calendar.DeliveryCount(),
		})
	}
}
