// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope(t EventType) Event {
	return Event{
		Type:      t,
		SessionID: "0190a0b4-7f3c-7d3e-9b8a-000000000002",
		Timestamp: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEventValidate(t *testing.T) {
	pv := validEnvelope(TypePageView)
	pv.PageView = &PageView{Path: "/"}

	click := validEnvelope(TypeInteraction)
	click.Interaction = &Interaction{Kind: InteractionClick, Path: "/", Element: "a.cta"}

	scroll := validEnvelope(TypeInteraction)
	scroll.Interaction = &Interaction{Kind: InteractionScroll, Path: "/", ScrollDepth: 75}

	end := validEnvelope(TypeSessionEnd)
	end.SessionEnd = &SessionEnd{DurationSeconds: 12}

	custom := validEnvelope(TypeCustom)
	custom.Custom = &Custom{Name: "volunteer_signup"}

	for _, ev := range []Event{pv, click, scroll, end, custom} {
		assert.NoError(t, ev.Validate(), "type %s", ev.Type)
	}
}

func TestEventValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		ev   func() Event
	}{
		{"unknown type", func() Event {
			ev := validEnvelope("heartbeat")
			ev.PageView = &PageView{Path: "/"}
			return ev
		}},
		{"missing session", func() Event {
			ev := validEnvelope(TypePageView)
			ev.SessionID = " "
			ev.PageView = &PageView{Path: "/"}
			return ev
		}},
		{"missing timestamp", func() Event {
			ev := validEnvelope(TypePageView)
			ev.Timestamp = time.Time{}
			ev.PageView = &PageView{Path: "/"}
			return ev
		}},
		{"no payload", func() Event { return validEnvelope(TypePageView) }},
		{"two payloads", func() Event {
			ev := validEnvelope(TypePageView)
			ev.PageView = &PageView{Path: "/"}
			ev.SessionEnd = &SessionEnd{}
			return ev
		}},
		{"payload mismatch", func() Event {
			ev := validEnvelope(TypePageView)
			ev.SessionEnd = &SessionEnd{}
			return ev
		}},
		{"relative path", func() Event {
			ev := validEnvelope(TypePageView)
			ev.PageView = &PageView{Path: "nieuwsbrief"}
			return ev
		}},
		{"scroll not a milestone", func() Event {
			ev := validEnvelope(TypeInteraction)
			ev.Interaction = &Interaction{Kind: InteractionScroll, Path: "/", ScrollDepth: 30}
			return ev
		}},
		{"unknown interaction", func() Event {
			ev := validEnvelope(TypeInteraction)
			ev.Interaction = &Interaction{Kind: "hover", Path: "/"}
			return ev
		}},
		{"negative duration", func() Event {
			ev := validEnvelope(TypeSessionEnd)
			ev.SessionEnd = &SessionEnd{DurationSeconds: -1}
			return ev
		}},
		{"custom without name", func() Event {
			ev := validEnvelope(TypeCustom)
			ev.Custom = &Custom{Name: ""}
			return ev
		}},
		{"custom name too long", func() Event {
			ev := validEnvelope(TypeCustom)
			ev.Custom = &Custom{Name: strings.Repeat("x", 101)}
			return ev
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.ev()
			assert.ErrorIs(t, ev.Validate(), ErrInvalidEvent)
		})
	}
}

func TestEventJSONShape(t *testing.T) {
	ev := validEnvelope(TypeSessionEnd)
	ev.SessionEnd = &SessionEnd{Path: "/", DurationSeconds: 30}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "session_end", raw["type"])
	assert.Equal(t, ev.SessionID, raw["sessionId"])
	assert.Contains(t, raw, "sessionEnd")
	assert.NotContains(t, raw, "pageview")
	assert.NotContains(t, raw, "userId")
}

func TestEventPath(t *testing.T) {
	ev := validEnvelope(TypeCustom)
	ev.Custom = &Custom{Name: "x", Path: "/fotoalbum"}
	assert.Equal(t, "/fotoalbum", ev.Path())
	assert.Equal(t, "", (&Event{}).Path())
}
