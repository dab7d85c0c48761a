package agentapi

import (
	"context"

	"github.com/IsaacDSC/eeudesk/internal/offline"
	"github.com/IsaacDSC/eeudesk/internal/remote"
	"github.com/IsaacDSC/eeudesk/internal/respcache"
)

// Desk is the subset of *remote.Client the handlers use.
type Desk interface {
	Login(ctx context.Context, creds remote.Credentials) (remote.Result, error)

	GetComplaints(ctx context.Context, filters remote.Filters) (remote.Result, error)
	CreateComplaint(ctx context.Context, complaint any, opts ...remote.RequestOption) (remote.Result, error)
	UpdateComplaint(ctx context.Context, id string, updates map[string]any, opts ...remote.RequestOption) (remote.Result, error)
	DeleteComplaint(ctx context.Context, id string) (remote.Result, error)
	BulkUpdateComplaints(ctx context.Context, ids []string, updates map[string]any, opts ...remote.RequestOption) (remote.Result, error)

	GetUsers(ctx context.Context) (remote.Result, error)
	CreateUser(ctx context.Context, user any, opts ...remote.RequestOption) (remote.Result, error)
	UpdateUser(ctx context.Context, id string, updates map[string]any, opts ...remote.RequestOption) (remote.Result, error)
	DeleteUser(ctx context.Context, id string) (remote.Result, error)

	GetAnalytics(ctx context.Context, filters remote.Filters) (remote.Result, error)
	SearchCustomer(ctx context.Context, query string) (remote.Result, error)

	Online() bool
	PendingWrites() []offline.Item
	Drain(ctx context.Context) offline.Report
	CacheStats() respcache.Stats
	ClearCache()
	InvalidateCache(substr string) int
}

var _ Desk = (*remote.Client)(nil)
