package engine

import "encoding/json"

// UIEvent is a server frame the sync core does not interpret (chat, dialog,
// system notices, typing indicators), forwarded verbatim to the UI layer.
type UIEvent struct {
	Type string
	Raw  json.RawMessage
}

// Events delivers UI passthrough frames. A UI that stops draining loses the
// oldest events, never the engine.
func (e *Engine) Events() <-chan UIEvent {
	return e.events
}

func (e *Engine) emitUIEvent(ev UIEvent) {
	select {
	case e.events <- ev:
		return
	default:
	}
	// Drop one.
	select {
	case <-e.events:
		e.stats.DroppedEvents++
	default:
	}
	select {
	case e.events <- ev:
	default:
		e.stats.DroppedEvents++
	}
}
