// Package fakeserver is an in-process stand-in for the scanner's web API,
// used to exercise the client over real HTTP in tests.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/L1nMay/portscanner-console/internal/model"
)

type failure struct {
	status int
	body   string
}

type Server struct {
	mu sync.Mutex

	stats   model.Stats
	results []model.Finding
	runs    []model.ScanRun
	plan    *model.ScanPlan

	// Token, when set, is required as a bearer credential on every
	// endpoint except the stream.
	Token string

	failures map[string]failure
	calls    map[string]int
	auth     map[string]string
	custom   []model.ScanRequest

	hub *Hub
}

func New() *Server {
	return &Server{
		results:  []model.Finding{},
		runs:     []model.ScanRun{},
		failures: make(map[string]failure),
		calls:    make(map[string]int),
		auth:     make(map[string]string),
		hub:      NewHub(),
	}
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) SetStats(st model.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = st
}

func (s *Server) SetResults(res []model.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = res
}

func (s *Server) SetRuns(runs []model.ScanRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = runs
}

func (s *Server) SetPlan(p *model.ScanPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = p
}

// Fail makes path answer with status and a plain-text body until Recover is called.
func (s *Server) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, body: body}
}

func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastAuthorization returns the Authorization header of the last request to path.
func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[path]
}

func (s *Server) CustomRequests() []model.ScanRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ScanRequest(nil), s.custom...)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/stats", s.guard(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		st := s.stats
		s.mu.Unlock()
		writeJSON(w, 200, st)
	}))

	mux.HandleFunc("/api/results", s.guard(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		res := s.results
		s.mu.Unlock()
		writeJSON(w, 200, res)
	}))

	mux.HandleFunc("/api/scans", s.guard(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		runs := s.runs
		s.mu.Unlock()
		writeJSON(w, 200, runs)
	}))

	mux.HandleFunc("/api/scan/plan", s.guard(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		p := s.plan
		s.mu.Unlock()
		if p == nil {
			http.Error(w, "no targets specified", 400)
			return
		}
		writeJSON(w, 200, p)
	}))

	mux.HandleFunc("/api/scan", s.guard(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "started"})
	}))

	mux.HandleFunc("/api/scan/custom", s.guard(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var req model.ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		s.mu.Lock()
		s.custom = append(s.custom, req)
		s.mu.Unlock()
		writeJSON(w, 200, map[string]any{"status": "started"})
	}))

	mux.HandleFunc("/api/scan/cancel", s.guard(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"cancelled": true})
	}))

	mux.HandleFunc("/api/scan/stream", func(w http.ResponseWriter, r *http.Request) {
		s.count(r)
		if f, ok := s.failure(r.URL.Path); ok {
			http.Error(w, f.body, f.status)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "stream unsupported", 500)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(200)
		flusher.Flush()

		sub := s.hub.subscribe()
		defer s.hub.unsubscribe(sub)

		for {
			select {
			case <-r.Context().Done():
				return
			case <-sub.drop:
				return
			case b := <-sub.ch:
				_, _ = w.Write([]byte("data: "))
				_, _ = w.Write(b)
				_, _ = w.Write([]byte("\n\n"))
				flusher.Flush()
			}
		}
	})

	return mux
}

// guard enforces method, bearer credential and injected failures, and records the call.
func (s *Server) guard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.count(r)
		if r.Method != method {
			http.Error(w, "method not allowed", 405)
			return
		}
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if f, ok := s.failure(r.URL.Path); ok {
			if f.body == "" {
				w.WriteHeader(f.status)
				return
			}
			http.Error(w, f.body, f.status)
			return
		}
		next(w, r)
	}
}

func (s *Server) count(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.URL.Path]++
	s.auth[r.URL.Path] = r.Header.Get("Authorization")
}

func (s *Server) failure(path string) (failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[strings.TrimRight(path, "/")]
	return f, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
