package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"navalha/pkg/tenant"
)

func replayFixture(t *testing.T) (http.Handler, *int) {
	t.Helper()
	store := NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(store.Stop)

	hits := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return Idempotency(store, "")(handler), &hits
}

func scopedRequest(unitID, key string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/queue/entries", nil)
	r.Header.Set("Idempotency-Key", key)
	if unitID != "" {
		r = r.WithContext(tenant.WithScope(r.Context(), tenant.System(unitID)))
	}
	return r
}

func TestIdempotency_ReplaysSameKeySameUnit(t *testing.T) {
	handler, hits := replayFixture(t)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, scopedRequest("507f1f77bcf86cd799439011", "abc"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	if *hits != 1 {
		t.Errorf("expected the second request to replay the cache, handler ran %d times", *hits)
	}
}

func TestIdempotency_SameKeyIsolatedAcrossUnits(t *testing.T) {
	handler, hits := replayFixture(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, scopedRequest("507f1f77bcf86cd799439011", "abc"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, scopedRequest("507f1f77bcf86cd799439022", "abc"))

	if *hits != 2 {
		t.Errorf("a key from one unit must not replay for another, handler ran %d times", *hits)
	}
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	handler, hits := replayFixture(t)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, scopedRequest("507f1f77bcf86cd799439011", ""))
	}
	if *hits != 2 {
		t.Errorf("requests without a key must not be cached, handler ran %d times", *hits)
	}
}
