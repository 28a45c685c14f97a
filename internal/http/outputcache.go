package http

import (
	"bytes"
	"net/http"
	"sync"
	"time"
)

// OutputCache is a response-level cache for successful GET responses, keyed
// by request URI with a short TTL. It sits in front of the data-access layer
// so repeated identical requests are served without touching it.
type OutputCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]outputEntry
}

type outputEntry struct {
	status      int
	contentType string
	body        []byte
	expiresAt   time.Time
}

// NewOutputCache returns an OutputCache with the given TTL.
func NewOutputCache(ttl time.Duration) *OutputCache {
	return &OutputCache{
		ttl:     ttl,
		entries: make(map[string]outputEntry),
	}
}

// Middleware serves cached responses and captures cacheable ones. Only 200
// responses to GET requests are stored.
func (oc *OutputCache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || oc.ttl <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()
		if entry, ok := oc.get(key); ok {
			if entry.contentType != "" {
				w.Header().Set("Content-Type", entry.contentType)
			}
			w.Header().Set("X-Output-Cache", "hit")
			w.WriteHeader(entry.status)
			_, _ = w.Write(entry.body)
			return
		}

		recorder := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK {
			oc.set(key, outputEntry{
				status:      recorder.statusCode,
				contentType: recorder.Header().Get("Content-Type"),
				body:        recorder.body.Bytes(),
				expiresAt:   time.Now().Add(oc.ttl),
			})
		}
	})
}

func (oc *OutputCache) get(key string) (outputEntry, bool) {
	oc.mu.RLock()
	entry, ok := oc.entries[key]
	oc.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return outputEntry{}, false
	}
	return entry, true
}

func (oc *OutputCache) set(key string, entry outputEntry) {
	oc.mu.Lock()
	oc.entries[key] = entry
	oc.mu.Unlock()
}

// captureWriter tees the response body so it can be cached after handling.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.statusCode = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}
