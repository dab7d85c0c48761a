package agentapi

import (
	"net/http"
	"strings"

	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

func GetAnalyticsHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/analytics",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			res, err := desk.GetAnalytics(r.Context(), filtersFromQuery(r))
			writeResult(w, r, res, err)
		},
	}
}

func GetCustomerSearchHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/customers/search",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			q := strings.TrimSpace(r.URL.Query().Get("q"))
			if q == "" {
				badRequest(w, "query parameter q is required")
				return
			}

			res, err := desk.SearchCustomer(r.Context(), q)
			writeResult(w, r, res, err)
		},
	}
}
