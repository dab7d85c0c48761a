package agentapi

import (
	"net/http"

	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

func GetHealthCheckHandler(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /health",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"online": desk.Online(),
			})
		},
	}
}
