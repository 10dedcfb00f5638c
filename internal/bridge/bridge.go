// Package bridge streams pipeline events to UI clients over a websocket.
// Overlays and status bars subscribe to watch transcription, correction and
// injection happen in real time; the pipeline itself never blocks on a slow
// or dead client, events for such clients are dropped.
package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// EventType classifies a pipeline event.
type EventType string

const (
	// EventSpeechStart marks the detector entering the Speaking state.
	EventSpeechStart EventType = "speech_start"

	// EventSpeechEnd marks the end of a speech segment.
	EventSpeechEnd EventType = "speech_end"

	// EventTranscript carries the raw recogniser output for a segment.
	EventTranscript EventType = "transcript"

	// EventCorrection carries the corrected text for a segment.
	EventCorrection EventType = "correction"

	// EventInjection reports the delivery outcome for a segment.
	EventInjection EventType = "injection"
)

// Event is one pipeline notification, serialised as JSON on the wire.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	// Text is the transcript or corrected text, depending on Type.
	Text string `json:"text,omitempty"`

	// Original is the pre-correction text on correction events.
	Original string `json:"original,omitempty"`

	// Confidence accompanies transcript and correction events.
	Confidence float64 `json:"confidence,omitempty"`

	// Outcome and Strategy accompany injection events.
	Outcome  string `json:"outcome,omitempty"`
	Strategy string `json:"strategy,omitempty"`

	// PauseMs accompanies speech_end events.
	PauseMs int64 `json:"pause_ms,omitempty"`
}

// subscriber is one connected client. Events are buffered; a full buffer
// drops the event rather than stalling the publisher.
type subscriber struct {
	events chan Event
}

// Bridge fans pipeline events out to websocket subscribers. Safe for
// concurrent use.
type Bridge struct {
	log *slog.Logger

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	dropped int64
	closed  bool
}

// New returns an empty Bridge.
func New(log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		log:  log,
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish delivers ev to every connected subscriber without blocking.
func (b *Bridge) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			b.dropped++
			if b.dropped%100 == 1 {
				b.log.Warn("dropping events for slow subscriber", "total_dropped", b.dropped)
			}
		}
	}
}

// Subscribers returns the number of connected clients.
func (b *Bridge) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Handler returns the websocket upgrade handler to mount on the HTTP server.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			b.log.Warn("websocket accept failed", "err", err)
			return
		}
		b.serve(r.Context(), conn)
	})
}

func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn) {
	sub := &subscriber{events: make(chan Event, 64)}
	if !b.add(sub) {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer b.remove(sub)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Clients only listen; the read loop exists to notice disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.events:
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

func (b *Bridge) add(sub *subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.subs[sub] = struct{}{}
	return true
}

func (b *Bridge) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// Close stops accepting subscribers. Existing connections wind down as their
// contexts end.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
