package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/IsaacDSC/eeudesk/internal/remote"
	"github.com/IsaacDSC/eeudesk/pkg/ctxlogger"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeResult maps a client call onto an HTTP response. The body is always
// the Result itself.
func writeResult(w http.ResponseWriter, r *http.Request, res remote.Result, err error) {
	status := resultStatus(r.Context(), res, err)
	if status >= http.StatusInternalServerError {
		ctxlogger.GetLogger(r.Context()).Error("Desk call failed", "status", status, "error", res.Error, "details", res.Details)
	}
	writeJSON(w, status, res)
}

func resultStatus(ctx context.Context, res remote.Result, err error) int {
	switch {
	case errors.Is(err, remote.ErrQueuedOffline):
		return http.StatusAccepted
	case errors.Is(err, remote.ErrUnsupportedMethod):
		return http.StatusMethodNotAllowed
	case errors.Is(err, remote.ErrRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case err != nil:
		return http.StatusInternalServerError
	}

	if res.Success {
		if res.Queued {
			return http.StatusAccepted
		}
		return http.StatusOK
	}

	switch {
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return res.StatusCode
	case res.StatusCode > 0 || res.Details != "":
		// upstream 5xx or an unreadable body
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// requestOptions reads ?optimistic=true from write requests.
func requestOptions(r *http.Request) []remote.RequestOption {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("optimistic")); ok {
		return []remote.RequestOption{remote.Optimistic()}
	}
	return nil
}

// filtersFromQuery turns query parameters into client filters; repeated
// keys keep the first value.
func filtersFromQuery(r *http.Request, skip ...string) remote.Filters {
	filters := remote.Filters{}
	for k, v := range r.URL.Query() {
		if len(v) == 0 || slices.Contains(skip, k) {
			continue
		}
		filters[k] = v[0]
	}
	return filters
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
