package agentapi

import (
	"net/http"

	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

type BulkUpdateDto struct {
	IDs     []string       `json:"ids"`
	Updates map[string]any `json:"updates"`
}

func GetListComplaintsHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/complaints",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			res, err := desk.GetComplaints(r.Context(), filtersFromQuery(r))
			writeResult(w, r, res, err)
		},
	}
}

func GetCreateComplaintHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "POST /api/complaints",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var complaint map[string]any
			if err := decodeBody(r, &complaint); err != nil || complaint == nil {
				badRequest(w, "Invalid request body")
				return
			}

			res, err := desk.CreateComplaint(r.Context(), complaint, requestOptions(r)...)
			writeResult(w, r, res, err)
		},
	}
}

// The literal "bulk" segment outranks the {id} wildcard in the mux.
func GetBulkUpdateComplaintsHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "PUT /api/complaints/bulk",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var dto BulkUpdateDto
			if err := decodeBody(r, &dto); err != nil {
				badRequest(w, "Invalid request body")
				return
			}

			if len(dto.IDs) == 0 || len(dto.Updates) == 0 {
				badRequest(w, "ids and updates are required")
				return
			}

			res, err := desk.BulkUpdateComplaints(r.Context(), dto.IDs, dto.Updates, requestOptions(r)...)
			writeResult(w, r, res, err)
		},
	}
}

func GetUpdateComplaintHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "PUT /api/complaints/{id}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var updates map[string]any
			if err := decodeBody(r, &updates); err != nil || updates == nil {
				badRequest(w, "Invalid request body")
				return
			}

			res, err := desk.UpdateComplaint(r.Context(), r.PathValue("id"), updates, requestOptions(r)...)
			writeResult(w, r, res, err)
		},
	}
}

func GetDeleteComplaintHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "DELETE /api/complaints/{id}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			res, err := desk.DeleteComplaint(r.Context(), r.PathValue("id"))
			writeResult(w, r, res, err)
		},
	}
}
