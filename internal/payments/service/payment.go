package service

import (
	"context"

	"navalha/internal/payments/repository"
	"navalha/internal/payments/validator"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/money"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/mongo"
)

// UnitAccounts is the slice of the units service the webhook needs to flip
// a tenant's billing status.
type UnitAccounts interface {
	SetActive(ctx context.Context, scope tenant.Scope, unitID string, active bool) error
}

type PaymentService interface {
	HandleEvent(ctx context.Context, payload *model.WebhookPayload) error
}

type paymentService struct {
	repo      repository.PaymentEventRepository
	accounts  UnitAccounts
	validator *validator.WebhookValidator
	log       *logger.Logger
}

func NewPaymentService(
	repo repository.PaymentEventRepository,
	accounts UnitAccounts,
	webhookValidator *validator.WebhookValidator,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		repo:      repo,
		accounts:  accounts,
		validator: webhookValidator,
		log:       log,
	}
}

// HandleEvent processes one provider delivery. The billing-status flip runs
// before the ledger insert: the flip is idempotent, so replaying it on a
// redelivered event is harmless, while the unique insert on data.id
// guarantees at most one ledger entry per provider event.
func (s *paymentService) HandleEvent(ctx context.Context, payload *model.WebhookPayload) error {
	if err := s.validator.Validate(payload); err != nil {
		return apperrors.InvalidInput(err.Error())
	}

	unitID := payload.Data.Customer

	switch payload.Type {
	case model.PaymentReceived:
		if err := s.setUnitActive(ctx, unitID, true); err != nil {
			return err
		}
	case model.SubscriptionCancelled:
		if err := s.setUnitActive(ctx, unitID, false); err != nil {
			return err
		}
	case model.PaymentOverdue:
		// Overdue starts the provider's dunning flow; the unit stays active
		// until the subscription is actually cancelled.
		s.log.Warn("Payment overdue",
			"event_id", payload.Data.ID,
			"unit_id", unitID,
			"value", money.FormatBRL(money.RoundHalfUp(payload.Data.Value*100)),
		)
	}

	event := &model.PaymentEvent{
		ID:          payload.Data.ID,
		UnitID:      unitID,
		Type:        payload.Type,
		ValueCents:  money.RoundHalfUp(payload.Data.Value * 100),
		Customer:    payload.Data.Customer,
		Description: payload.Data.Description,
	}

	if _, err := s.repo.Create(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.log.Info("Duplicate webhook delivery acknowledged",
				"event_id", payload.Data.ID,
				"type", payload.Type,
			)
			return nil
		}
		return apperrors.Internal("Failed to record payment event", err)
	}

	s.log.Info("Payment event processed",
		"event_id", payload.Data.ID,
		"type", payload.Type,
		"unit_id", unitID,
		"value", money.FormatBRL(event.ValueCents),
	)
	return nil
}

func (s *paymentService) setUnitActive(ctx context.Context, unitID string, active bool) error {
	if unitID == "" || s.accounts == nil {
		return nil
	}

	scope := tenant.System(unitID)
	if err := s.accounts.SetActive(ctx, scope, unitID, active); err != nil {
		return apperrors.Internal("Failed to update unit billing status", err)
	}
	return nil
}
