package agentapi

import (
	"net/http"

	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

func GetListUsersHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/users",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			res, err := desk.GetUsers(r.Context())
			writeResult(w, r, res, err)
		},
	}
}

func GetCreateUserHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "POST /api/users",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var user map[string]any
			if err := decodeBody(r, &user); err != nil || user == nil {
				badRequest(w, "Invalid request body")
				return
			}

			res, err := desk.CreateUser(r.Context(), user, requestOptions(r)...)
			writeResult(w, r, res, err)
		},
	}
}

func GetUpdateUserHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "PUT /api/users/{id}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var updates map[string]any
			if err := decodeBody(r, &updates); err != nil || updates == nil {
				badRequest(w, "Invalid request body")
				return
			}

			res, err := desk.UpdateUser(r.Context(), r.PathValue("id"), updates, requestOptions(r)...)
			writeResult(w, r, res, err)
		},
	}
}

func GetDeleteUserHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "DELETE /api/users/{id}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			res, err := desk.DeleteUser(r.Context(), r.PathValue("id"))
			writeResult(w, r, res, err)
		},
	}
}
