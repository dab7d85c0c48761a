package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/IsaacDSC/eeudesk/internal/cfg"
	"github.com/IsaacDSC/eeudesk/internal/connectivity"
	"github.com/IsaacDSC/eeudesk/internal/gas"
	"github.com/IsaacDSC/eeudesk/internal/offline"
	"github.com/IsaacDSC/eeudesk/internal/queuestore"
	"github.com/IsaacDSC/eeudesk/internal/remote"
	"github.com/IsaacDSC/eeudesk/internal/retry"
	"github.com/IsaacDSC/eeudesk/pkg/httpclient"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const appName = "eeudesk"

// runtime is everything a command needs to talk to the desk.
type runtime struct {
	client  *remote.Client
	queue   *offline.Queue
	signal  connectivity.Signal
	probe   *connectivity.Probe
	closers []func(context.Context) error
}

func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func newRuntime(ctx context.Context, conf cfg.Config, forceOffline bool) (*runtime, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	queue, closeQueue, err := openQueue(ctx, conf.Queue)
	if err != nil {
		return nil, err
	}
	rt := &runtime{queue: queue, closers: []func(context.Context) error{closeQueue}}

	switch {
	case forceOffline:
		rt.signal = connectivity.NewManual(false)
	case conf.Connectivity.ProbeURL != "":
		rt.probe = connectivity.NewProbe(
			conf.Connectivity.ProbeURL,
			conf.Connectivity.ProbeInterval,
			conf.Connectivity.ProbeTimeout,
			connectivity.WithProbeClient(httpclient.NewHTTPClientWithLogging(conf.Connectivity.ProbeTimeout)),
		)
		rt.probe.Check(ctx)
		rt.signal = rt.probe
	default:
		rt.signal = connectivity.NewManual(true)
	}

	var gasOpts []gas.Option
	if conf.GAS.RateLimit > 0 {
		gasOpts = append(gasOpts, gas.WithRateLimit(conf.GAS.RateLimit, conf.GAS.RateBurst))
	}

	rt.client = remote.New(gas.NewClient(conf.GAS.URL, gasOpts...), queue, rt.signal,
		remote.WithRetryPolicy(retry.Policy{
			MaxRetries:     conf.Retry.MaxRetries,
			BaseDelay:      conf.Retry.BaseDelay,
			Multiplier:     conf.Retry.Multiplier,
			MaxDelay:       conf.Retry.MaxDelay,
			AttemptTimeout: conf.GAS.AttemptTimeout,
		}),
		remote.WithTTLs(remote.TTLs{
			Default:    conf.Cache.DefaultTTL,
			Complaints: conf.Cache.ComplaintsTTL,
			Users:      conf.Cache.UsersTTL,
			Analytics:  conf.Cache.AnalyticsTTL,
		}),
		remote.WithDrainInterval(conf.Queue.DrainInterval),
	)

	return rt, nil
}

// openQueue opens the configured store and loads the persisted queue.
func openQueue(ctx context.Context, conf cfg.Queue) (*offline.Queue, func(context.Context) error, error) {
	kv, closeKV, err := openStore(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	queue := offline.NewQueue(kv, offline.WithKey(conf.Key))
	if err := queue.Load(ctx); err != nil {
		_ = closeKV(ctx)
		return nil, nil, fmt.Errorf("load offline queue: %w", err)
	}
	return queue, closeKV, nil
}

// openStore connects the backend named by QUEUE_STORE.
func openStore(ctx context.Context, conf cfg.Queue) (queuestore.KV, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch conf.Store {
	case "memory":
		return queuestore.NewMemory(), noop, nil

	case "sqlite":
		store, err := queuestore.NewSQLite(ctx, conf.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func(context.Context) error { return store.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: conf.CacheAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return queuestore.NewRedis(appName, client), func(context.Context) error { return client.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(conf.DbConn))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		return queuestore.NewMongo(client), client.Disconnect, nil
	}

	return nil, nil, fmt.Errorf("unknown queue store %q", conf.Store)
}
