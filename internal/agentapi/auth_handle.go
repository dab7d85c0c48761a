package agentapi

import (
	"net/http"

	"github.com/IsaacDSC/eeudesk/internal/remote"
	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

func GetLoginHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "POST /api/auth/login",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var creds remote.Credentials
			if err := decodeBody(r, &creds); err != nil {
				badRequest(w, "Invalid request body")
				return
			}

			if creds.Email == "" || creds.Password == "" {
				badRequest(w, "email and password are required")
				return
			}

			res, err := desk.Login(r.Context(), creds)
			writeResult(w, r, res, err)
		},
	}
}
