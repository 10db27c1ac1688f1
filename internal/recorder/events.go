package recorder

// EventType identifies a recorder notification.
type EventType string

const (
	EventProgress           EventType = "progress"
	EventCompleted          EventType = "completed"
	EventError              EventType = "error"
	EventMaxDurationReached EventType = "max_duration_reached"
	EventCancelled          EventType = "cancelled"
)

// Event is delivered to every subscriber.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
	Output    string    `json:"output,omitempty"`
	Message   string    `json:"message,omitempty"`
}

const listenerBuffer = 16

// Subscribe adds a listener for recorder events
func (r *Recorder) Subscribe() chan Event {
	ch := make(chan Event, listenerBuffer)
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, ch)
	r.listenersMu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (r *Recorder) Unsubscribe(ch chan Event) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// emit notifies all listeners without blocking. Progress events are dropped
// for slow listeners; any other event evicts the oldest queued one instead.
func (r *Recorder) emit(ev Event) {
	r.listenersMu.RLock()
	defer r.listenersMu.RUnlock()

	for _, ch := range r.listeners {
		select {
		case ch <- ev:
			continue
		default:
		}
		if ev.Type == EventProgress {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
