package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

const (
	PathLogin          = "/api/auth/login"
	PathComplaints     = "/api/complaints"
	PathComplaintsBulk = "/api/complaints/bulk"
	PathUsers          = "/api/users"
	PathAnalytics      = "/api/analytics"
	PathCustomerSearch = "/api/customers/search"
)

type Filters map[string]any

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// key renders filters deterministically; encoding/json sorts map keys.
func (f Filters) key(prefix string) string {
	if len(f) == 0 {
		return prefix + "{}"
	}
	b, err := json.Marshal(f)
	if err != nil {
		return CacheKey(http.MethodGet, prefix, f)
	}
	return prefix + string(b)
}

// Login never queues: a session cannot be opened offline.
func (c *Client) Login(ctx context.Context, creds Credentials) (Result, error) {
	return c.Request(ctx, PathLogin, http.MethodPost, creds, SkipOfflineQueue())
}

func (c *Client) GetComplaints(ctx context.Context, filters Filters) (Result, error) {
	return c.Request(ctx, PathComplaints, http.MethodGet, filters,
		WithCacheKey(filters.key("complaints_")),
		WithTTL(c.ttls.Complaints),
	)
}

func (c *Client) CreateComplaint(ctx context.Context, complaint any, opts ...RequestOption) (Result, error) {
	return c.Request(ctx, PathComplaints, http.MethodPost, complaint, opts...)
}

func (c *Client) UpdateComplaint(ctx context.Context, id string, updates map[string]any, opts ...RequestOption) (Result, error) {
	return c.Request(ctx, PathComplaints+"/"+url.PathEscape(id), http.MethodPut, withID(id, updates), opts...)
}

func (c *Client) DeleteComplaint(ctx context.Context, id string) (Result, error) {
	return c.Request(ctx, PathComplaints+"/"+url.PathEscape(id), http.MethodDelete, map[string]any{"id": id})
}

// BulkUpdateComplaints applies the same updates to every id in one call.
func (c *Client) BulkUpdateComplaints(ctx context.Context, ids []string, updates map[string]any, opts ...RequestOption) (Result, error) {
	return c.Request(ctx, PathComplaintsBulk, http.MethodPut, map[string]any{
		"ids":     ids,
		"updates": updates,
	}, opts...)
}

func (c *Client) GetUsers(ctx context.Context) (Result, error) {
	return c.Request(ctx, PathUsers, http.MethodGet, Filters{},
		WithCacheKey("users"),
		WithTTL(c.ttls.Users),
	)
}

func (c *Client) CreateUser(ctx context.Context, user any, opts ...RequestOption) (Result, error) {
	return c.Request(ctx, PathUsers, http.MethodPost, user, opts...)
}

func (c *Client) UpdateUser(ctx context.Context, id string, updates map[string]any, opts ...RequestOption) (Result, error) {
	return c.Request(ctx, PathUsers+"/"+url.PathEscape(id), http.MethodPut, withID(id, updates), opts...)
}

func (c *Client) DeleteUser(ctx context.Context, id string) (Result, error) {
	return c.Request(ctx, PathUsers+"/"+url.PathEscape(id), http.MethodDelete, map[string]any{"id": id})
}

func (c *Client) GetAnalytics(ctx context.Context, filters Filters) (Result, error) {
	return c.Request(ctx, PathAnalytics, http.MethodGet, filters,
		WithCacheKey(filters.key("analytics_")),
		WithTTL(c.ttls.Analytics),
	)
}

func (c *Client) SearchCustomer(ctx context.Context, query string) (Result, error) {
	return c.Request(ctx, PathCustomerSearch, http.MethodGet, map[string]any{"query": query},
		WithCacheKey("customer_search_"+query),
		WithTTL(c.ttls.Default),
	)
}

func withID(id string, updates map[string]any) map[string]any {
	out := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	out["id"] = id
	return out
}
