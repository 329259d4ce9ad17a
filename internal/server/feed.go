package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// sseEvent is an SSE message to send to subscribers.
type sseEvent struct {
	Event string
	Data  string
}

// feed fans out received sessions to live dashboard subscribers.
type feed struct {
	mu   sync.Mutex
	subs map[chan sseEvent]struct{}
}

func newFeed() *feed {
	return &feed{subs: make(map[chan sseEvent]struct{})}
}

func (f *feed) broadcast(event sseEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}

func (f *feed) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 32)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *feed) unsubscribe(ch chan sseEvent) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

func (f *feed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// handleSessionEvents streams every session pushed while the client is
// connected.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.feed.subscribe()
	defer s.feed.unsubscribe(ch)

	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
			flusher.Flush()
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
