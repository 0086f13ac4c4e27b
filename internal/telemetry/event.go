// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package telemetry implements the visitor beacon: session identity,
// device and traffic classification, event assembly and best-effort
// delivery to the collector endpoint.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEvent is returned by Event.Validate.
var ErrInvalidEvent = errors.New("invalid telemetry event")

// EventType tags the payload an Event carries.
type EventType string

// Event types.
const (
	TypePageView    EventType = "pageview"
	TypeInteraction EventType = "interaction"
	TypeSessionEnd  EventType = "session_end"
	TypeCustom      EventType = "custom_event"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case TypePageView, TypeInteraction, TypeSessionEnd, TypeCustom:
		return true
	}
	return false
}

// InteractionKind distinguishes interaction payloads.
type InteractionKind string

// Interaction kinds.
const (
	InteractionClick  InteractionKind = "click"
	InteractionScroll InteractionKind = "scroll"
)

// Event is the envelope posted to the collector. Exactly one payload field
// is set and it must match Type.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	PageView    *PageView    `json:"pageview,omitempty"`
	Interaction *Interaction `json:"interaction,omitempty"`
	SessionEnd  *SessionEnd  `json:"sessionEnd,omitempty"`
	Custom      *Custom      `json:"custom,omitempty"`
}

// PageView describes one navigation.
type PageView struct {
	Path           string  `json:"path"`
	Title          string  `json:"title,omitempty"`
	Referrer       string  `json:"referrer,omitempty"`
	Source         Source  `json:"source"`
	Device         Device  `json:"device"`
	Browser        Browser `json:"browser"`
	OS             string  `json:"os,omitempty"`
	Country        string  `json:"country,omitempty"`
	ViewportWidth  int     `json:"viewportWidth,omitempty"`
	ViewportHeight int     `json:"viewportHeight,omitempty"`
	ScreenWidth    int     `json:"screenWidth,omitempty"`
	ScreenHeight   int     `json:"screenHeight,omitempty"`
	Locale         string  `json:"locale,omitempty"`
	Timezone       string  `json:"timezone,omitempty"`
}

// Interaction is a click or a scroll milestone.
type Interaction struct {
	Kind        InteractionKind `json:"kind"`
	Path        string          `json:"path"`
	Element     string          `json:"element,omitempty"`
	Target      string          `json:"target,omitempty"`
	X           int             `json:"x,omitempty"`
	Y           int             `json:"y,omitempty"`
	ScrollDepth int             `json:"scrollDepth,omitempty"`
}

// SessionEnd carries the seconds spent since the last observed activity.
type SessionEnd struct {
	Path            string `json:"path,omitempty"`
	DurationSeconds int64  `json:"durationSeconds"`
}

// Custom is an application-defined event.
type Custom struct {
	Name       string         `json:"name"`
	Path       string         `json:"path,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

const (
	maxPathLength  = 2048
	maxNameLength  = 100
	maxFieldLength = 512
)

// Validate checks the envelope and its payload.
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if strings.TrimSpace(e.SessionID) == "" || len(e.SessionID) > 64 {
		return fmt.Errorf("%w: session id is required", ErrInvalidEvent)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}

	set := 0
	for _, present := range []bool{e.PageView != nil, e.Interaction != nil, e.SessionEnd != nil, e.Custom != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: expected exactly one payload, got %d", ErrInvalidEvent, set)
	}

	switch e.Type {
	case TypePageView:
		if e.PageView == nil {
			return payloadMismatch(e.Type)
		}
		return validatePath(e.PageView.Path, true)
	case TypeInteraction:
		if e.Interaction == nil {
			return payloadMismatch(e.Type)
		}
		return e.Interaction.validate()
	case TypeSessionEnd:
		if e.SessionEnd == nil {
			return payloadMismatch(e.Type)
		}
		if e.SessionEnd.DurationSeconds < 0 {
			return fmt.Errorf("%w: negative duration", ErrInvalidEvent)
		}
		return validatePath(e.SessionEnd.Path, false)
	case TypeCustom:
		if e.Custom == nil {
			return payloadMismatch(e.Type)
		}
		name := strings.TrimSpace(e.Custom.Name)
		if name == "" || len(name) > maxNameLength {
			return fmt.Errorf("%w: custom event name must be 1-%d characters", ErrInvalidEvent, maxNameLength)
		}
		return validatePath(e.Custom.Path, false)
	}
	return nil
}

func (i *Interaction) validate() error {
	switch i.Kind {
	case InteractionClick:
		if len(i.Element) > maxFieldLength || len(i.Target) > maxFieldLength {
			return fmt.Errorf("%w: element descriptor too long", ErrInvalidEvent)
		}
	case InteractionScroll:
		if !IsScrollMilestone(i.ScrollDepth) {
			return fmt.Errorf("%w: scroll depth %d is not a milestone", ErrInvalidEvent, i.ScrollDepth)
		}
	default:
		return fmt.Errorf("%w: unknown interaction kind %q", ErrInvalidEvent, i.Kind)
	}
	return validatePath(i.Path, true)
}

func payloadMismatch(t EventType) error {
	return fmt.Errorf("%w: payload does not match type %q", ErrInvalidEvent, t)
}

func validatePath(p string, required bool) error {
	if p == "" {
		if required {
			return fmt.Errorf("%w: path is required", ErrInvalidEvent)
		}
		return nil
	}
	if !strings.HasPrefix(p, "/") || len(p) > maxPathLength {
		return fmt.Errorf("%w: path must be absolute", ErrInvalidEvent)
	}
	return nil
}

// Path returns the page path of whichever payload is set.
func (e *Event) Path() string {
	switch {
	case e.PageView != nil:
		return e.PageView.Path
	case e.Interaction != nil:
		return e.Interaction.Path
	case e.SessionEnd != nil:
		return e.SessionEnd.Path
	case e.Custom != nil:
		return e.Custom.Path
	}
	return ""
}
