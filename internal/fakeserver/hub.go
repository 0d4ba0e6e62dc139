package fakeserver

import (
	"encoding/json"
	"sync"

	"github.com/L1nMay/portscanner-console/internal/model"
)

type subscriber struct {
	ch   chan []byte
	drop chan struct{}
}

// Hub fans progress messages out to stream subscribers. Like the real server
// it does not buffer for absent subscribers and drops on a full channel.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

func (h *Hub) subscribe() *subscriber {
	s := &subscriber{ch: make(chan []byte, 64), drop: make(chan struct{})}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Publish sends one progress event to every subscriber.
func (h *Hub) Publish(p model.ProgressEvent) {
	b, _ := json.Marshal(p)
	h.PublishRaw(b)
}

// PublishRaw sends an arbitrary data payload, e.g. a malformed one.
func (h *Hub) PublishRaw(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- b:
		default:
		}
	}
}

// DropAll ends every open stream as a transport failure would.
func (h *Hub) DropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		close(s.drop)
		delete(h.subs, s)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
