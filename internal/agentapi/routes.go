// Package agentapi exposes the desk client over a local HTTP API. Every
// route goes through the client's cache, retries and offline queue.
package agentapi

import (
	"net/http"

	"github.com/IsaacDSC/eeudesk/pkg/auth"
	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

func Routes(desk Desk) []httpadapter.HttpHandle {
	return []httpadapter.HttpHandle{
		GetHealthCheckHandler(desk),
		GetLoginHandle(desk),

		GetListComplaintsHandle(desk),
		GetCreateComplaintHandle(desk),
		GetBulkUpdateComplaintsHandle(desk),
		GetUpdateComplaintHandle(desk),
		GetDeleteComplaintHandle(desk),

		GetListUsersHandle(desk),
		GetCreateUserHandle(desk),
		GetUpdateUserHandle(desk),
		GetDeleteUserHandle(desk),

		GetAnalyticsHandle(desk),
		GetCustomerSearchHandle(desk),

		GetSyncStatusHandle(desk),
		GetSyncDrainHandle(desk),
		GetClearCacheHandle(desk),
	}
}

type handlerConfig struct {
	users map[string]string
}

type HandlerOption func(*handlerConfig)

// WithBasicAuth requires one of users (name -> password) on every route
// except /health.
func WithBasicAuth(users map[string]string) HandlerOption {
	return func(c *handlerConfig) {
		c.users = users
	}
}

// NewHandler builds the mux with every route behind LoggerMiddleware.
func NewHandler(desk Desk, opts ...HandlerOption) http.Handler {
	var conf handlerConfig
	for _, opt := range opts {
		opt(&conf)
	}

	mux := http.NewServeMux()
	httpadapter.Register(mux, Routes(desk)...)

	return LoggerMiddleware(auth.NewBasicAuth(conf.users).Middleware(mux, "/health"))
}
