// Package apitest provides an in-memory fake of the ledger admin API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smileynet/ledgerdeck/internal/api"
)

// Request is a call received by the fake server.
type Request struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

type failure struct {
	status      int
	code        string
	description string
}

// Server is a fake API backed by canned lists and results.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	auth     string
	lists    map[string][]json.RawMessage
	results  map[string]json.RawMessage
	raw      map[string][]byte
	failures map[string]failure
	requests []Request
}

// New starts a fake server and stops it when t completes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		lists:    map[string][]json.RawMessage{},
		results:  map[string]json.RawMessage{},
		raw:      map[string][]byte{},
		failures: map[string]failure{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/{path}", s.handle)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Client returns an api.Client pointed at the server.
func (s *Server) Client(opts ...api.Option) *api.Client {
	return api.NewClient(s.URL, opts...)
}

// RequireAuth makes every call without the given credentials fail with 401.
func (s *Server) RequireAuth(userID, authToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = api.AuthHeader(userID, authToken)
}

// SetList registers the records returned by a list path. items must marshal
// to a JSON array.
func (s *Server) SetList(path string, items any) {
	data, err := json.Marshal(items)
	if err != nil {
		panic(fmt.Sprintf("apitest: marshal %s: %v", path, err))
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		panic(fmt.Sprintf("apitest: %s items are not a list: %v", path, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[path] = list
}

// SetResult registers the data returned by a single-record path.
func (s *Server) SetResult(path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("apitest: marshal %s: %v", path, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[path] = data
}

// SetRaw registers a raw, non-enveloped response body.
func (s *Server) SetRaw(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[path] = body
}

// Fail makes path return a success=false envelope.
func (s *Server) Fail(path string, status int, code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, code: code, description: description}
}

// Requests returns every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the calls received for path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	payload, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	_ = json.Unmarshal(payload, &body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: path, Header: r.Header.Clone(), Body: body})
	auth := s.auth
	fail, failed := s.failures[path]
	raw, isRaw := s.raw[path]
	list, isList := s.lists[path]
	result, isResult := s.results[path]
	s.mu.Unlock()

	if auth != "" && r.Header.Get("Authorization") != auth {
		writeError(w, http.StatusUnauthorized, "user:access_token_not_found", "There is no user corresponding to the provided access_token.")
		return
	}
	switch {
	case failed:
		writeError(w, fail.status, fail.code, fail.description)
	case isRaw:
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write(raw)
	case isList:
		writeData(w, paginate(list, body))
	case isResult:
		writeData(w, result)
	default:
		writeError(w, http.StatusNotFound, "client:endpoint_not_found", "Endpoint not found: "+path)
	}
}

// paginate filters list by search_term and slices out the requested page.
func paginate(list []json.RawMessage, body map[string]any) map[string]any {
	if term, _ := body["search_term"].(string); term != "" {
		var filtered []json.RawMessage
		for _, item := range list {
			if strings.Contains(strings.ToLower(string(item)), strings.ToLower(term)) {
				filtered = append(filtered, item)
			}
		}
		list = filtered
	}

	page := intParam(body, "page", 1)
	perPage := intParam(body, "per_page", 10)
	total := len(list)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)
	data := list[start:end]
	if data == nil {
		data = []json.RawMessage{}
	}
	return map[string]any{
		"object": "list",
		"data":   data,
		"pagination": map[string]any{
			"current_page":  page,
			"per_page":      perPage,
			"total_count":   total,
			"total_pages":   totalPages,
			"is_first_page": page == 1,
			"is_last_page":  page >= totalPages,
		},
	}
}

func intParam(body map[string]any, key string, def int) int {
	if v, ok := body[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", api.MediaType)
	_ = json.NewEncoder(w).Encode(map[string]any{"version": "1", "success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", api.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"version": "1",
		"success": false,
		"data": map[string]any{
			"object":      "error",
			"code":        code,
			"description": description,
			"messages":    nil,
		},
	})
}
