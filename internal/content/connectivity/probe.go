package connectivity

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// ProbeConfig configures a Probe.
type ProbeConfig struct {
	Address  string
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultProbeConfig dials a public DNS resolver every 15s.
var DefaultProbeConfig = ProbeConfig{
	Address:  "1.1.1.1:53",
	Interval: 15 * time.Second,
	Timeout:  3 * time.Second,
}

// DialFunc opens a connection, normally (&net.Dialer{}).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Probe is a Signal that learns connectivity by periodically dialing a TCP
// address. It starts optimistic (online) until the first check says
// otherwise.
type Probe struct {
	*ManualSignal

	cfg  ProbeConfig
	dial DialFunc
	log  *slog.Logger
}

// NewProbe creates a probe. Zero config fields take DefaultProbeConfig values.
func NewProbe(cfg ProbeConfig, dial DialFunc, logger *slog.Logger) *Probe {
	if cfg.Address == "" {
		cfg.Address = DefaultProbeConfig.Address
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProbeConfig.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeConfig.Timeout
	}
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		ManualSignal: NewManualSignal(true),
		cfg:          cfg,
		dial:         dial,
		log:          logger.With("component", "probe", "address", cfg.Address),
	}
}

// Check dials once, updates the signal and returns the result.
func (p *Probe) Check(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", p.cfg.Address)
	if err != nil && ctx.Err() != nil {
		// Shutting down; a cancelled dial says nothing about the network.
		return p.Current()
	}
	online := err == nil
	if online {
		_ = conn.Close()
	} else {
		p.log.Debug("Probe failed", "error", err)
	}

	p.Set(online)
	return online
}

// Run checks immediately and then every interval until ctx is done.
func (p *Probe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
