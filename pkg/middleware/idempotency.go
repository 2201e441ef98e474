package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"navalha/pkg/tenant"
)

type IdempotencyStore interface {
	Get(key string) (*CachedResponse, bool)
	Set(key string, response *CachedResponse)
	Stop() // Stop cleanup goroutines and release resources
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu     sync.RWMutex
	store  map[string]*CachedResponse
	ttl    time.Duration
	stopCh chan struct{}
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:  make(map[string]*CachedResponse),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(key string) (*CachedResponse, bool) {
	s.mu.RLock()
	response, exists := s.store[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(response.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, false
	}

	return response, true
}

func (s *InMemoryIdempotencyStore) Set(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	close(s.stopCh)
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for repeated requests carrying the
// same key. Webhook deliveries use the provider event ID as the key, so a
// duplicate delivery never reaches the handler twice.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Idempotency-Key"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := r.Header.Get(headerName)

			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			// The client picks the key, so it is namespaced by the
			// authenticated unit: one tenant can never replay another
			// tenant's cached response.
			if scope, ok := tenant.FromContext(r.Context()); ok {
				idempotencyKey = scope.ActiveUnitID + ":" + idempotencyKey
			}

			if handleCachedResponse(w, store, idempotencyKey) {
				return
			}

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     200,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(capture, r)
			cacheSuccessfulResponse(store, idempotencyKey, capture, w)
		})
	}
}

func handleCachedResponse(w http.ResponseWriter, store IdempotencyStore, key string) bool {
	cached, found := store.Get(key)
	if !found {
		return false
	}

	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
	return true
}

func cacheSuccessfulResponse(store IdempotencyStore, key string, capture *responseCapture, w http.ResponseWriter) {
	if capture.statusCode < 200 || capture.statusCode >= 300 {
		return
	}

	store.Set(key, &CachedResponse{
		StatusCode: capture.statusCode,
		Headers:    w.Header().Clone(),
		Body:       capture.body.Bytes(),
	})
}
