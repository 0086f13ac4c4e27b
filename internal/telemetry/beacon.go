// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// State is the lifecycle phase of a Beacon.
type State int

// Beacon states.
const (
	StateInit State = iota
	StateActive
	StateInteracting
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateActive:
		return "active"
	case StateInteracting:
		return "interacting"
	case StateEnding:
		return "ending"
	}
	return "unknown"
}

// Options toggles what a Client reports.
type Options struct {
	PageViews    bool
	Interactions bool
	// SiteHost is the site's own host; referrers from it count as direct.
	SiteHost string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Client is the shared telemetry handle. It owns the transport and hands
// out one Beacon per tab or browser session.
type Client struct {
	transport TelemetryTransport
	opts      Options
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewClient creates a Client delivering through transport.
func NewClient(transport TelemetryTransport, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{transport: transport, opts: opts, logger: opts.Logger, now: opts.Now}
}

// Options returns the client's options.
func (c *Client) Options() Options { return c.opts }

// Transport returns the transport in use.
func (c *Client) Transport() TelemetryTransport { return c.transport }

// NewBeacon returns a Beacon whose session id lives in store.
func (c *Client) NewBeacon(store SessionStore) *Beacon {
	return &Beacon{client: c, store: store, scrollSent: make(map[int]bool)}
}

// Close stops new sends, waits for in-flight ones, then closes the
// transport. Events emitted after Close are dropped.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
	}
	return c.transport.Close(ctx)
}

// emit validates and sends ev without blocking the caller. Failures are
// logged and swallowed.
func (c *Client) emit(ctx context.Context, ev Event) {
	if err := ev.Validate(); err != nil {
		c.logger.Debug("telemetry event dropped", "error", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("telemetry event dropped after close", "type", ev.Type)
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer c.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("telemetry transport panicked", "panic", r)
			}
		}()
		if err := c.transport.Send(ctx, ev); err != nil {
			c.logger.Debug("telemetry send failed",
				"error", err,
				"type", ev.Type,
				"transport", c.transport.Name(),
			)
		}
	}()
}

// Beacon observes one tab's lifecycle. All methods are safe for concurrent
// use and never return errors.
type Beacon struct {
	client *Client
	store  SessionStore

	mu           sync.Mutex
	state        State
	sessionID    string
	userID       string
	path         string
	lastActivity time.Time
	scrollSent   map[int]bool
}

// Activate reads or creates the session id and moves the beacon to Active.
// Calling it again after End resumes the same session.
func (b *Beacon) Activate(ctx context.Context) string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sessionID == "" {
		b.sessionID = EnsureSessionID(ctx, b.store)
	}
	if b.state == StateInit || b.state == StateEnding {
		b.state = StateActive
		b.lastActivity = b.client.now()
	}
	return b.sessionID
}

// SessionID returns the id assigned at activation, or "".
func (b *Beacon) SessionID() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// State returns the current lifecycle phase.
func (b *Beacon) State() State {
	if b == nil {
		return StateInit
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetUser attaches a user id to subsequent events.
func (b *Beacon) SetUser(id string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.userID = id
	b.mu.Unlock()
}

// envelope builds an event for the current session. Caller holds b.mu.
func (b *Beacon) envelope(t EventType) Event {
	return Event{
		Type:      t,
		SessionID: b.sessionID,
		UserID:    b.userID,
		Timestamp: b.client.now().UTC(),
	}
}

// live reports whether the beacon may emit. Caller holds b.mu.
func (b *Beacon) live() bool {
	return b.state == StateActive || b.state == StateInteracting
}

// TrackPageView records a navigation. Device, browser and source are filled
// in by the caller, typically via ClassifyDevice and friends.
func (b *Beacon) TrackPageView(ctx context.Context, pv PageView) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if !b.live() {
		b.mu.Unlock()
		return
	}
	b.path = pv.Path
	b.lastActivity = b.client.now()
	clear(b.scrollSent)

	if !b.client.opts.PageViews {
		b.mu.Unlock()
		return
	}
	ev := b.envelope(TypePageView)
	ev.PageView = &pv
	b.mu.Unlock()

	b.client.emit(ctx, ev)
}

// TrackClick records a click on the current page.
func (b *Beacon) TrackClick(ctx context.Context, element, target string, x, y int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if !b.live() || !b.client.opts.Interactions {
		b.mu.Unlock()
		return
	}
	b.state = StateInteracting
	b.lastActivity = b.client.now()
	ev := b.envelope(TypeInteraction)
	ev.Interaction = &Interaction{
		Kind:    InteractionClick,
		Path:    b.path,
		Element: element,
		Target:  target,
		X:       x,
		Y:       y,
	}
	b.mu.Unlock()

	b.client.emit(ctx, ev)
}

// TrackScroll reports percent when it is a milestone not yet reported on
// the current page. It returns whether an event was emitted.
func (b *Beacon) TrackScroll(ctx context.Context, percent int) bool {
	if b == nil || !IsScrollMilestone(percent) {
		return false
	}

	b.mu.Lock()
	if !b.live() || !b.client.opts.Interactions || b.scrollSent[percent] {
		b.mu.Unlock()
		return false
	}
	b.scrollSent[percent] = true
	b.state = StateInteracting
	b.lastActivity = b.client.now()
	ev := b.envelope(TypeInteraction)
	ev.Interaction = &Interaction{
		Kind:        InteractionScroll,
		Path:        b.path,
		ScrollDepth: percent,
	}
	b.mu.Unlock()

	b.client.emit(ctx, ev)
	return true
}

// TrackCustom records an application-defined event.
func (b *Beacon) TrackCustom(ctx context.Context, name string, props map[string]any) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if !b.live() {
		b.mu.Unlock()
		return
	}
	b.lastActivity = b.client.now()
	ev := b.envelope(TypeCustom)
	ev.Custom = &Custom{Name: name, Path: b.path, Properties: props}
	b.mu.Unlock()

	b.client.emit(ctx, ev)
}

// End reports the seconds since the last observed activity (activation,
// navigation, click, scroll milestone or custom event) and moves the beacon
// to Ending. Repeated calls are ignored until the beacon is reactivated.
func (b *Beacon) End(ctx context.Context) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if !b.live() {
		b.mu.Unlock()
		return
	}
	b.state = StateEnding
	elapsed := b.client.now().Sub(b.lastActivity)
	ev := b.envelope(TypeSessionEnd)
	ev.SessionEnd = &SessionEnd{
		Path:            b.path,
		DurationSeconds: max(int64(elapsed/time.Second), 0),
	}
	b.mu.Unlock()

	b.client.emit(ctx, ev)
}

// IsScrollMilestone reports whether percent is 25, 50, 75 or 100.
func IsScrollMilestone(percent int) bool {
	return percent > 0 && percent <= 100 && percent%25 == 0
}

// ScrollPercent converts a scroll offset into a rounded percentage of the
// scrollable height, clamped to [0, 100].
func ScrollPercent(offset, viewportHeight, documentHeight int) int {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return 100
	}
	p := int(math.Round(float64(offset) / float64(scrollable) * 100))
	return min(max(p, 0), 100)
}

type beaconKey struct{}

// WithBeacon returns a copy of ctx carrying b.
func WithBeacon(ctx context.Context, b *Beacon) context.Context {
	return context.WithValue(ctx, beaconKey{}, b)
}

// FromContext returns the beacon stored in ctx, or nil. All Beacon methods
// are no-ops on a nil receiver.
func FromContext(ctx context.Context) *Beacon {
	b, _ := ctx.Value(beaconKey{}).(*Beacon)
	return b
}
