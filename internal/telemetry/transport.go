// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Delivery defaults.
const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultQueueSize      = 256
	UserAgent             = "vcms-beacon/1.0"
	maxResponseDrain      = 4 * 1024
)

// Transport errors.
var (
	ErrQueueFull       = errors.New("telemetry queue full")
	ErrTransportClosed = errors.New("telemetry transport closed")
)

// TelemetryTransport delivers events to the collector. Delivery is
// at-most-once: implementations never retry.
type TelemetryTransport interface {
	// Send delivers or enqueues ev.
	Send(ctx context.Context, ev Event) error
	// Close releases resources, flushing queued events until ctx is done.
	Close(ctx context.Context) error
	// Name identifies the transport in logs.
	Name() string
}

// Capabilities describes what the runtime supports for delivery.
type Capabilities struct {
	// Beacon is true when a background queue can outlive the caller and be
	// flushed on shutdown.
	Beacon bool
}

// DeliverFunc hands one event to the collector.
type DeliverFunc func(ctx context.Context, ev Event) error

// TransportConfig configures both transports.
type TransportConfig struct {
	Endpoint  string
	Timeout   time.Duration
	QueueSize int
	Client    *http.Client
	Logger    *slog.Logger
	// Deliver replaces the HTTP POST to Endpoint, e.g. with a call into an
	// in-process collector.
	Deliver DeliverFunc
}

func (c *TransportConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultRequestTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Client == nil {
		c.Client = &http.Client{
			Timeout: c.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Deliver == nil {
		client, endpoint := c.Client, c.Endpoint
		c.Deliver = func(ctx context.Context, ev Event) error {
			return post(ctx, client, endpoint, ev)
		}
	}
}

// SelectTransport returns a BeaconTransport when caps allow it, otherwise a
// KeepAliveTransport.
func SelectTransport(caps Capabilities, cfg TransportConfig) TelemetryTransport {
	if caps.Beacon {
		return NewBeaconTransport(cfg)
	}
	return NewKeepAliveTransport(cfg)
}

// post sends one event as JSON and treats any 2xx as success. The response
// body is drained and ignored.
func post(ctx context.Context, client *http.Client, endpoint string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending event: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector answered HTTP %d", resp.StatusCode)
	}
	return nil
}

// KeepAliveTransport posts each event synchronously over a pooled
// keep-alive connection with a bounded timeout.
type KeepAliveTransport struct {
	deliver DeliverFunc
	client  *http.Client
	timeout time.Duration
}

// NewKeepAliveTransport creates a KeepAliveTransport.
func NewKeepAliveTransport(cfg TransportConfig) *KeepAliveTransport {
	cfg.defaults()
	return &KeepAliveTransport{deliver: cfg.Deliver, client: cfg.Client, timeout: cfg.Timeout}
}

// Name implements TelemetryTransport.
func (t *KeepAliveTransport) Name() string { return "keepalive" }

// Send posts ev and waits for the response.
func (t *KeepAliveTransport) Send(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()
	return t.deliver(ctx, ev)
}

// Close drops idle connections.
func (t *KeepAliveTransport) Close(context.Context) error {
	t.client.CloseIdleConnections()
	return nil
}

// BeaconTransport enqueues events without blocking and delivers them from a
// background worker. Close stops intake and flushes what is queued.
type BeaconTransport struct {
	send     DeliverFunc
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewBeaconTransport creates a BeaconTransport and starts its worker.
func NewBeaconTransport(cfg TransportConfig) *BeaconTransport {
	cfg.defaults()
	t := &BeaconTransport{
		send:     cfg.Deliver,
		client:   cfg.Client,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		queue:    make(chan Event, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	t.wg.Add(1)
	go t.worker()
	return t
}

// Name implements TelemetryTransport.
func (t *BeaconTransport) Name() string { return "beacon" }

// Send enqueues ev. It never blocks; a full queue drops the event.
func (t *BeaconTransport) Send(_ context.Context, ev Event) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrTransportClosed
	}
	select {
	case t.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued events.
func (t *BeaconTransport) Pending() int {
	return len(t.queue)
}

func (t *BeaconTransport) worker() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case ev, ok := <-t.queue:
			if !ok {
				return
			}
			t.deliver(context.Background(), ev)
		}
	}
}

func (t *BeaconTransport) deliver(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.send(ctx, ev); err != nil {
		t.logger.Debug("telemetry delivery failed", "error", err, "type", ev.Type, "transport", t.Name())
	}
}

// Close stops accepting events, then delivers the queued ones until ctx
// expires. Events still queued after that are dropped.
func (t *BeaconTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	t.wg.Wait()

	for {
		select {
		case ev := <-t.queue:
			if ctx.Err() != nil {
				dropped := len(t.queue) + 1
				t.logger.Warn("telemetry flush interrupted", "dropped", dropped)
				return ctx.Err()
			}
			t.deliver(ctx, ev)
		default:
			t.client.CloseIdleConnections()
			return nil
		}
	}
}
