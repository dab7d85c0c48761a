package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/IsaacDSC/eeudesk/pkg/ctxlogger"
	"github.com/jonboulle/clockwork"
)

// Probe derives the online state from periodic GETs against a URL. Any HTTP
// answer, whatever its status, counts as reachable.
type Probe struct {
	*Manual
	url      string
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
}

type ProbeOption func(*Probe)

func WithProbeClient(c *http.Client) ProbeOption {
	return func(p *Probe) {
		p.client = c
	}
}

func WithProbeClock(c clockwork.Clock) ProbeOption {
	return func(p *Probe) {
		p.clock = c
	}
}

func NewProbe(url string, interval, timeout time.Duration, opts ...ProbeOption) *Probe {
	p := &Probe{
		Manual:   NewManual(true),
		url:      url,
		client:   http.DefaultClient,
		interval: interval,
		timeout:  timeout,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check performs one probe and updates the state.
func (p *Probe) Check(ctx context.Context) bool {
	online := p.reachable(ctx)
	if online != p.Online() {
		ctxlogger.GetLogger(ctx).Info("Connectivity changed", "online", online, "probe_url", p.url)
	}
	p.Set(online)
	return online
}

func (p *Probe) reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Run probes immediately and then every interval until ctx is done.
func (p *Probe) Run(ctx context.Context) {
	p.Check(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Check(ctx)
		}
	}
}
