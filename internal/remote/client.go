// Package remote is the single entry point for talking to the complaint
// desk's Apps Script endpoint. It layers a response cache, retries with
// backoff and an offline write queue over gas.Doer.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IsaacDSC/eeudesk/internal/connectivity"
	"github.com/IsaacDSC/eeudesk/internal/gas"
	"github.com/IsaacDSC/eeudesk/internal/offline"
	"github.com/IsaacDSC/eeudesk/internal/respcache"
	"github.com/IsaacDSC/eeudesk/internal/retry"
	"github.com/IsaacDSC/eeudesk/pkg/ctxlogger"
	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/singleflight"
)

var (
	ErrQueuedOffline     = errors.New("request queued for later sync")
	ErrRequestFailed     = errors.New("remote request failed")
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// Result is what every call returns. Check Success: HTTP and parse failures
// come back as Success=false with a nil error.
type Result struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    string          `json:"details,omitempty"`
	Count      *int            `json:"count,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
	Queued     bool            `json:"queued,omitempty"`
	Timestamp  int64           `json:"timestamp,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
}

// Decode unmarshals Data into v.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("result has no data")
	}
	return json.Unmarshal(r.Data, v)
}

type TTLs struct {
	Default    time.Duration
	Complaints time.Duration
	Users      time.Duration
	Analytics  time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Default:    5 * time.Minute,
		Complaints: 2 * time.Minute,
		Users:      10 * time.Minute,
		Analytics:  10 * time.Minute,
	}
}

// dependents lists cache families derived from another family's data.
var dependents = map[string][]string{
	"complaints": {"analytics"},
	"users":      {"analytics"},
}

type Client struct {
	doer          gas.Doer
	cache         *respcache.Cache[gas.Response]
	retry         *retry.Controller
	queue         *offline.Queue
	drainer       *offline.Drainer
	signal        connectivity.Signal
	clock         clockwork.Clock
	ttls          TTLs
	drainInterval time.Duration
	group         singleflight.Group

	policy  retry.Policy
	onRetry retry.RetryFunc
}

type Option func(*Client)

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithOnRetry observes every failed attempt that is about to be retried.
func WithOnRetry(fn retry.RetryFunc) Option {
	return func(c *Client) {
		c.onRetry = fn
	}
}

func WithTTLs(t TTLs) Option {
	return func(c *Client) {
		c.ttls = t
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

func WithDrainInterval(d time.Duration) Option {
	return func(c *Client) {
		c.drainInterval = d
	}
}

// New wires a client. queue must already be loaded.
func New(doer gas.Doer, queue *offline.Queue, signal connectivity.Signal, opts ...Option) *Client {
	c := &Client{
		doer:          doer,
		queue:         queue,
		signal:        signal,
		clock:         clockwork.NewRealClock(),
		ttls:          DefaultTTLs(),
		drainInterval: 30 * time.Second,
		policy:        retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var retryOpts []retry.Option
	if c.onRetry != nil {
		retryOpts = append(retryOpts, retry.WithOnRetry(c.onRetry))
	}
	c.retry = retry.New(c.policy, retryOpts...)
	c.cache = respcache.New[gas.Response](c.ttls.Default, respcache.WithClock(c.clock))
	// a queued write gets as many replays as a live call gets retries
	c.drainer = offline.NewDrainer(queue, c.replay, signal, c.retry.Policy().MaxRetries)

	return c
}

type requestOptions struct {
	useCache         *bool
	cacheKey         string
	ttl              time.Duration
	skipOfflineQueue bool
	optimistic       bool
	invalidate       []string
}

type RequestOption func(*requestOptions)

// WithCache toggles the cache for a read. Reads use it by default.
func WithCache(enabled bool) RequestOption {
	return func(o *requestOptions) {
		o.useCache = &enabled
	}
}

func WithCacheKey(key string) RequestOption {
	return func(o *requestOptions) {
		o.cacheKey = key
	}
}

func WithTTL(ttl time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.ttl = ttl
	}
}

// SkipOfflineQueue sends the call even while offline instead of queuing it.
func SkipOfflineQueue() RequestOption {
	return func(o *requestOptions) {
		o.skipOfflineQueue = true
	}
}

// Optimistic makes an offline write report success immediately with a
// temporary id instead of failing with ErrQueuedOffline.
func Optimistic() RequestOption {
	return func(o *requestOptions) {
		o.optimistic = true
	}
}

// WithInvalidation drops extra cache families after a successful write.
func WithInvalidation(families ...string) RequestOption {
	return func(o *requestOptions) {
		o.invalidate = append(o.invalidate, families...)
	}
}

// Request performs one call against the endpoint.
func (c *Client) Request(ctx context.Context, endpoint, method string, data any, opts ...RequestOption) (Result, error) {
	method = strings.ToUpper(method)
	action, ok := gas.ActionFor(method)
	if !ok {
		return Result{Success: false, Error: ErrUnsupportedMethod.Error()}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx = ctxlogger.WithLogger(ctx, ctxlogger.GetLogger(ctx).With("endpoint", endpoint, "action", string(action)))

	if method == http.MethodGet {
		if o.useCache == nil || *o.useCache {
			return c.cachedRead(ctx, endpoint, action, data, o)
		}
		return c.call(ctx, endpoint, action, data)
	}

	if queueable(method) && !o.skipOfflineQueue && !c.signal.Online() {
		return c.enqueue(ctx, endpoint, method, data, o.optimistic)
	}

	res, err := c.call(ctx, endpoint, action, data)
	if err == nil && res.Success {
		c.invalidate(ctx, endpoint, o.invalidate)
	}
	return res, err
}

func (c *Client) cachedRead(ctx context.Context, endpoint string, action gas.Action, data any, o requestOptions) (Result, error) {
	key := o.cacheKey
	if key == "" {
		key = CacheKey(http.MethodGet, endpoint, data)
	}

	if entry, ok := c.cache.Lookup(key); ok {
		ctxlogger.GetLogger(ctx).Debug("Cache hit", "cache_key", key)
		res := fromResponse(entry.Data)
		res.Cached = true
		res.Timestamp = entry.StoredAt.UnixMilli()
		return res, nil
	}

	type shared struct {
		res Result
		err error
	}

	// Concurrent misses on one key share a single network call. The call is
	// detached from whichever caller started it; each caller stops waiting
	// on its own context and AttemptTimeout still bounds every attempt.
	ch := c.group.DoChan(key, func() (any, error) {
		resp, res, err := c.send(context.WithoutCancel(ctx), endpoint, action, data)
		if err == nil && res.Success {
			c.cache.Set(key, resp, o.ttl)
		}
		return shared{res: res, err: err}, nil
	})

	select {
	case r := <-ch:
		s := r.Val.(shared)
		return s.res, s.err
	case <-ctx.Done():
		return Result{Success: false, Error: ctx.Err().Error()}, ctx.Err()
	}
}

func (c *Client) call(ctx context.Context, endpoint string, action gas.Action, data any) (Result, error) {
	_, res, err := c.send(ctx, endpoint, action, data)
	return res, err
}

// send runs the call through the retry controller and folds expected
// failures (HTTP status, unparsable body) into the Result.
func (c *Client) send(ctx context.Context, endpoint string, action gas.Action, data any) (gas.Response, Result, error) {
	l := ctxlogger.GetLogger(ctx)

	var resp gas.Response
	err := c.retry.Do(ctx, func(actx context.Context) error {
		r, err := c.doer.Do(actx, gas.Request{Path: endpoint, Action: action, Data: data})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	if err == nil {
		res := fromResponse(resp)
		res.Timestamp = c.clock.Now().UnixMilli()
		if !resp.Success {
			l.Warn("Remote reported failure", "error", resp.Error)
		}
		return resp, res, nil
	}

	var statusErr *gas.StatusError
	if errors.As(err, &statusErr) {
		l.Error("Remote request failed", "status_code", statusErr.Code, "error", err)
		return gas.Response{}, Result{
			Success:    false,
			Error:      fmt.Sprintf("HTTP %d", statusErr.Code),
			Details:    statusErr.Body,
			StatusCode: statusErr.Code,
		}, nil
	}

	var parseErr *gas.ParseError
	if errors.As(err, &parseErr) {
		l.Error("Remote returned invalid JSON", "excerpt", parseErr.Excerpt)
		return gas.Response{}, Result{
			Success: false,
			Error:   "Invalid JSON response from server",
			Details: parseErr.Excerpt,
		}, nil
	}

	if ctx.Err() != nil {
		return gas.Response{}, Result{Success: false, Error: err.Error()}, err
	}

	l.Error("Remote request failed", "error", err)
	return gas.Response{}, Result{Success: false, Error: err.Error()}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
}

func (c *Client) enqueue(ctx context.Context, endpoint, method string, data any, optimistic bool) (Result, error) {
	l := ctxlogger.GetLogger(ctx)

	payload, err := json.Marshal(data)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, fmt.Errorf("marshal offline payload: %w", err)
	}

	var tempID string
	if optimistic {
		tempID = newTempID(c.clock.Now())
	}

	item, err := c.queue.Enqueue(ctx, endpoint, method, payload, tempID)
	if err != nil {
		l.Error("Failed to queue offline write", "error", err)
		return Result{Success: false, Error: err.Error()}, err
	}

	l.Info("Offline, write queued", "item_id", item.ID, "pending", c.queue.Len(), "optimistic", optimistic)

	if !optimistic {
		return Result{Success: false, Error: ErrQueuedOffline.Error(), Queued: true}, ErrQueuedOffline
	}

	return Result{
		Success:   true,
		Data:      withTempID(payload, tempID),
		Queued:    true,
		Timestamp: c.clock.Now().UnixMilli(),
	}, nil
}

// replay sends a queued write. It never re-queues.
func (c *Client) replay(ctx context.Context, item offline.Item) error {
	var data any
	if len(item.Payload) > 0 {
		data = item.Payload
	}

	res, err := c.Request(ctx, item.Endpoint, item.Method, data, SkipOfflineQueue())
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("replay rejected: %s", res.Error)
	}
	return nil
}

func (c *Client) invalidate(ctx context.Context, endpoint string, extra []string) {
	families := extra
	if f := ResourceFamily(endpoint); f != "" {
		families = append(append([]string{f}, dependents[f]...), families...)
	}

	removed := 0
	for _, f := range families {
		if f == "" {
			continue
		}
		removed += c.cache.Invalidate(f)
	}

	if removed > 0 {
		ctxlogger.GetLogger(ctx).Debug("Cache invalidated", "families", families, "removed", removed)
	}
}

// Drain replays queued writes now.
func (c *Client) Drain(ctx context.Context) offline.Report {
	return c.drainer.Drain(ctx)
}

// RunSync drains on reconnect and periodically until ctx is done.
func (c *Client) RunSync(ctx context.Context) error {
	return offline.NewSyncer(c.drainer, c.signal, c.drainInterval, c.clock).Run(ctx)
}

func (c *Client) Online() bool {
	return c.signal.Online()
}

func (c *Client) PendingWrites() []offline.Item {
	return c.queue.Items()
}

func (c *Client) ClearQueue(ctx context.Context) error {
	return c.queue.Clear(ctx)
}

func (c *Client) CacheStats() respcache.Stats {
	return c.cache.Stats()
}

func (c *Client) ClearCache() {
	c.cache.Clear()
}

// InvalidateCache drops every entry whose key contains substr.
func (c *Client) InvalidateCache(substr string) int {
	return c.cache.Invalidate(substr)
}

func (c *Client) TTLs() TTLs {
	return c.ttls
}

func fromResponse(resp gas.Response) Result {
	return Result{
		Success: resp.Success,
		Data:    resp.Data,
		Error:   resp.Error,
		Count:   resp.Count,
	}
}

func queueable(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}

// CacheKey derives the default key: METHOD:endpoint:hash(data). The endpoint
// stays readable so family invalidation can match it.
func CacheKey(method, endpoint string, data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		b = []byte(fmt.Sprint(data))
	}
	return fmt.Sprintf("%s:%s:%016x", strings.ToUpper(method), endpoint, xxhash.Sum64(b))
}

// ResourceFamily is the first path segment after an optional "api" prefix:
// "/api/complaints/12" -> "complaints".
func ResourceFamily(endpoint string) string {
	path, _, _ := strings.Cut(endpoint, "?")
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || seg == "api" {
			continue
		}
		return seg
	}
	return ""
}

func newTempID(now time.Time) string {
	suffix := strings.ToLower(shortuuid.New())
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return "temp_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}

// withTempID returns payload with "id" set to tempID. Non-object payloads
// are replaced by {"id": tempID}.
func withTempID(payload json.RawMessage, tempID string) json.RawMessage {
	obj := map[string]any{}
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		obj = map[string]any{}
	}
	obj["id"] = tempID

	b, err := json.Marshal(obj)
	if err != nil {
		return json.RawMessage(`{"id":"` + tempID + `"}`)
	}
	return b
}
