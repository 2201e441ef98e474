package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"navalha/pkg/logger"
	"navalha/pkg/model"
)

type mockPaymentService struct {
	handleFunc func(ctx context.Context, payload *model.WebhookPayload) error
}

func (m *mockPaymentService) HandleEvent(ctx context.Context, payload *model.WebhookPayload) error {
	if m.handleFunc != nil {
		return m.handleFunc(ctx, payload)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard})
}

func newRouter(svc *mockPaymentService) *httprouter.Router {
	router := httprouter.New()
	NewWebhookHandler(svc, testLogger()).RegisterRoutes(router)
	return router
}

func TestHandleWebhookAcceptsProviderEvent(t *testing.T) {
	var received *model.WebhookPayload
	router := newRouter(&mockPaymentService{
		handleFunc: func(_ context.Context, payload *model.WebhookPayload) error {
			received = payload
			return nil
		},
	})

	body, _ := json.Marshal(model.WebhookPayload{
		ID:   "evt_001",
		Type: model.PaymentReceived,
		Data: model.WebhookData{ID: "pay_001", Value: 99.90, Customer: "507f1f77bcf86cd799439011"},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, received)
	assert.Equal(t, "pay_001", received.Data.ID)
}

func TestHandleWebhookRejectsMalformedBody(t *testing.T) {
	router := newRouter(&mockPaymentService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader([]byte("{not json")))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
