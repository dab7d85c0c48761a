package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IsaacDSC/eeudesk/internal/connectivity"
	"github.com/IsaacDSC/eeudesk/internal/gas"
	"github.com/IsaacDSC/eeudesk/internal/offline"
	"github.com/IsaacDSC/eeudesk/internal/queuestore"
	"github.com/IsaacDSC/eeudesk/internal/remote"
	"github.com/IsaacDSC/eeudesk/internal/retry"
	"github.com/IsaacDSC/eeudesk/mocks/mockgas"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServer struct {
	handler http.Handler
	doer    *mockgas.MockDoer
	signal  *connectivity.Manual
	client  *remote.Client
}

func newTestServer(t *testing.T, online bool) testServer {
	t.Helper()
	ctrl := gomock.NewController(t)

	queue := offline.NewQueue(queuestore.NewMemory())
	require.NoError(t, queue.Load(context.Background()))

	doer := mockgas.NewMockDoer(ctrl)
	signal := connectivity.NewManual(online)
	client := remote.New(doer, queue, signal, remote.WithRetryPolicy(retry.Policy{
		MaxRetries:     1,
		BaseDelay:      time.Millisecond,
		Multiplier:     2,
		MaxDelay:       time.Millisecond,
		AttemptTimeout: time.Second,
	}))

	return testServer{handler: NewHandler(client), doer: doer, signal: signal, client: client}
}

func (s testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) remote.Result {
	t.Helper()
	var res remote.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func TestComplaintRoutes(t *testing.T) {
	title := gofakeit.Sentence(4)

	tests := []struct {
		name           string
		online         bool
		method         string
		target         string
		body           any
		setupMocks     func(*mockgas.MockDoer)
		expectedStatus int
		expectedPath   string
	}{
		{
			name:   "list forwards query filters",
			online: true,
			method: http.MethodGet,
			target: "/api/complaints?status=open&region=Addis+Ababa",
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gas.Request{
					Path:   remote.PathComplaints,
					Action: gas.ActionGet,
					Data:   remote.Filters{"status": "open", "region": "Addis Ababa"},
				}).Return(gas.Response{Success: true, Data: json.RawMessage(`[]`)}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "create",
			online: true,
			method: http.MethodPost,
			target: "/api/complaints",
			body:   map[string]any{"title": title},
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req gas.Request) (gas.Response, error) {
						assert.Equal(t, gas.ActionCreate, req.Action)
						assert.Equal(t, map[string]any{"title": title}, req.Data)
						return gas.Response{Success: true, Data: json.RawMessage(`{"id":"C-1"}`)}, nil
					})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "create with invalid body",
			online:         true,
			method:         http.MethodPost,
			target:         "/api/complaints",
			body:           `{"title":`,
			setupMocks:     func(d *mockgas.MockDoer) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "create offline is accepted and queued",
			online:         false,
			method:         http.MethodPost,
			target:         "/api/complaints",
			body:           map[string]any{"title": title},
			setupMocks:     func(d *mockgas.MockDoer) {},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "optimistic create offline",
			online:         false,
			method:         http.MethodPost,
			target:         "/api/complaints?optimistic=true",
			body:           map[string]any{"title": title},
			setupMocks:     func(d *mockgas.MockDoer) {},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:   "update by id",
			online: true,
			method: http.MethodPut,
			target: "/api/complaints/C-7",
			body:   map[string]any{"status": "resolved"},
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gas.Request{
					Path:   "/api/complaints/C-7",
					Action: gas.ActionUpdate,
					Data:   map[string]any{"id": "C-7", "status": "resolved"},
				}).Return(gas.Response{Success: true}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "bulk update is not routed as an id",
			online: true,
			method: http.MethodPut,
			target: "/api/complaints/bulk",
			body:   BulkUpdateDto{IDs: []string{"C-1", "C-2"}, Updates: map[string]any{"assignedTo": "U-3"}},
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req gas.Request) (gas.Response, error) {
						assert.Equal(t, remote.PathComplaintsBulk, req.Path)
						return gas.Response{Success: true}, nil
					})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bulk update without ids",
			online:         true,
			method:         http.MethodPut,
			target:         "/api/complaints/bulk",
			body:           BulkUpdateDto{Updates: map[string]any{"status": "closed"}},
			setupMocks:     func(d *mockgas.MockDoer) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "delete upstream client error keeps its status",
			online: true,
			method: http.MethodDelete,
			target: "/api/complaints/C-404",
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					Return(gas.Response{}, &gas.StatusError{Code: http.StatusNotFound, Body: "not found"})
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "upstream server error is a bad gateway",
			online: true,
			method: http.MethodGet,
			target: "/api/complaints",
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					Return(gas.Response{}, &gas.StatusError{Code: http.StatusInternalServerError}).Times(2)
			},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:   "network failure is a bad gateway",
			online: true,
			method: http.MethodGet,
			target: "/api/complaints",
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					Return(gas.Response{}, errors.New("connection reset by peer")).Times(2)
			},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:   "application failure",
			online: true,
			method: http.MethodPost,
			target: "/api/complaints",
			body:   map[string]any{"title": ""},
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					Return(gas.Response{Success: false, Error: "title is required"}, nil)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.online)
			tt.setupMocks(s.doer)

			rr := s.do(t, tt.method, tt.target, tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func TestOptimisticCreateReturnsTempID(t *testing.T) {
	s := newTestServer(t, false)

	rr := s.do(t, http.MethodPost, "/api/complaints?optimistic=true", map[string]any{"title": "X"})
	require.Equal(t, http.StatusAccepted, rr.Code)

	res := decodeResult(t, rr)
	assert.True(t, res.Success)
	assert.True(t, res.Queued)

	var data map[string]any
	require.NoError(t, res.Decode(&data))
	assert.Equal(t, "X", data["title"])
	assert.Regexp(t, `^temp_\d+_`, data["id"])

	status := s.do(t, http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, status.Code)

	var body SyncStatus
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &body))
	assert.False(t, body.Online)
	assert.Equal(t, 1, body.Pending)
	require.Len(t, body.Items, 1)
	assert.Equal(t, data["id"], body.Items[0].TempID)
}

func TestListComplaintsServedFromCache(t *testing.T) {
	s := newTestServer(t, true)
	s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).
		Return(gas.Response{Success: true, Data: json.RawMessage(`[{"id":"C-1"}]`)}, nil).
		Times(1)

	first := decodeResult(t, s.do(t, http.MethodGet, "/api/complaints", nil))
	second := decodeResult(t, s.do(t, http.MethodGet, "/api/complaints", nil))

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t, true)
	name := gofakeit.Name()

	gomock.InOrder(
		s.doer.EXPECT().Do(gomock.Any(), gas.Request{Path: remote.PathUsers, Action: gas.ActionGet, Data: remote.Filters{}}).
			Return(gas.Response{Success: true, Data: json.RawMessage(`[]`)}, nil),
		s.doer.EXPECT().Do(gomock.Any(), gas.Request{Path: remote.PathUsers, Action: gas.ActionCreate, Data: map[string]any{"name": name}}).
			Return(gas.Response{Success: true, Data: json.RawMessage(`{"id":"U-1"}`)}, nil),
		s.doer.EXPECT().Do(gomock.Any(), gas.Request{Path: "/api/users/U-1", Action: gas.ActionUpdate, Data: map[string]any{"id": "U-1", "role": "manager"}}).
			Return(gas.Response{Success: true}, nil),
		s.doer.EXPECT().Do(gomock.Any(), gas.Request{Path: "/api/users/U-1", Action: gas.ActionDelete, Data: map[string]any{"id": "U-1"}}).
			Return(gas.Response{Success: true}, nil),
	)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/users", map[string]any{"name": name}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/users/U-1", map[string]any{"role": "manager"}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/users/U-1", nil).Code)
	assert.Equal(t, 0, s.client.CacheStats().Size)
}

func TestLoginHandle(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		setupMocks     func(*mockgas.MockDoer)
		expectedStatus int
	}{
		{
			name: "valid credentials",
			body: remote.Credentials{Email: gofakeit.Email(), Password: gofakeit.Password(true, true, true, false, false, 12)},
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					Return(gas.Response{Success: true, Data: json.RawMessage(`{"token":"abc"}`)}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "rejected credentials",
			body: remote.Credentials{Email: gofakeit.Email(), Password: "wrong"},
			setupMocks: func(d *mockgas.MockDoer) {
				d.EXPECT().Do(gomock.Any(), gomock.Any()).
					Return(gas.Response{}, &gas.StatusError{Code: http.StatusUnauthorized})
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing password",
			body:           remote.Credentials{Email: gofakeit.Email()},
			setupMocks:     func(d *mockgas.MockDoer) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true)
			tt.setupMocks(s.doer)

			rr := s.do(t, http.MethodPost, "/api/auth/login", tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestLoginWhileOfflineIsNotQueued(t *testing.T) {
	s := newTestServer(t, false)
	s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).
		Return(gas.Response{Success: true, Data: json.RawMessage(`{"token":"abc"}`)}, nil)

	rr := s.do(t, http.MethodPost, "/api/auth/login", remote.Credentials{Email: "agent@eeu.gov.et", Password: "secret"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, s.client.PendingWrites())
}

func TestAnalyticsAndSearch(t *testing.T) {
	s := newTestServer(t, true)

	s.doer.EXPECT().Do(gomock.Any(), gas.Request{
		Path:   remote.PathAnalytics,
		Action: gas.ActionGet,
		Data:   remote.Filters{"from": "2026-01-01"},
	}).Return(gas.Response{Success: true, Data: json.RawMessage(`{"open":4}`)}, nil)

	s.doer.EXPECT().Do(gomock.Any(), gas.Request{
		Path:   remote.PathCustomerSearch,
		Action: gas.ActionGet,
		Data:   map[string]any{"query": "0911"},
	}).Return(gas.Response{Success: true, Data: json.RawMessage(`[]`)}, nil)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/analytics?from=2026-01-01", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/customers/search?q=0911", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/customers/search?q=+", nil).Code)
}

func TestSyncRoutes(t *testing.T) {
	s := newTestServer(t, false)

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPut, "/api/complaints/C-1", map[string]any{"status": "closed"}).Code)

	rr := s.do(t, http.MethodPost, "/api/sync/drain", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	s.signal.Set(true)
	s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).Return(gas.Response{Success: true}, nil)

	rr = s.do(t, http.MethodPost, "/api/sync/drain", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var report offline.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, offline.Report{Replayed: 1}, report)
}

func TestClearCacheRoute(t *testing.T) {
	s := newTestServer(t, true)
	s.doer.EXPECT().Do(gomock.Any(), gomock.Any()).
		Return(gas.Response{Success: true, Data: json.RawMessage(`[]`)}, nil).Times(2)

	s.do(t, http.MethodGet, "/api/complaints", nil)
	s.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, 2, s.client.CacheStats().Size)

	rr := s.do(t, http.MethodDelete, "/api/sync/cache?match=users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"removed":1}`, rr.Body.String())

	rr = s.do(t, http.MethodDelete, "/api/sync/cache", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 0, s.client.CacheStats().Size)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, true)

	rr := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","online":true}`, rr.Body.String())
}

func TestLoggerMiddlewareKeepsRequestID(t *testing.T) {
	handler := LoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "req-42", rr.Header().Get("X-Request-ID"))
}

func TestBasicAuthOnAgentAPI(t *testing.T) {
	s := newTestServer(t, true)
	handler := NewHandler(s.client, WithBasicAuth(map[string]string{"agent1": "s3cret"}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	req.SetBasicAuth("agent1", "s3cret")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
