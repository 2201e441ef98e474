package tenant

import (
	"context"

	apperrors "navalha/pkg/errors"
	"navalha/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
)

// Scope is the explicit tenant context threaded through every core
// operation. The active unit is never inferred from session state; switching
// units means constructing a new Scope.
type Scope struct {
	ActiveUnitID    string
	AuthorizedUnits []string
}

// NewScope builds a scope for activeUnitID, verifying it belongs to the
// caller's authorized unit set.
func NewScope(activeUnitID string, authorizedUnits []string) (Scope, error) {
	if activeUnitID == "" {
		return Scope{}, apperrors.InvalidInput("active unit ID cannot be empty")
	}
	for _, id := range authorizedUnits {
		if id == activeUnitID {
			return Scope{ActiveUnitID: activeUnitID, AuthorizedUnits: authorizedUnits}, nil
		}
	}
	return Scope{}, apperrors.TenantIsolation(activeUnitID, activeUnitID)
}

// System returns a scope authorized for exactly one unit. Used by internal
// flows (webhook processing, cross-unit destination leg) where the unit is
// established by the engine rather than by caller claims.
func System(unitID string) Scope {
	return Scope{ActiveUnitID: unitID, AuthorizedUnits: []string{unitID}}
}

// Filter returns the mandatory unit_id predicate every tenant-owned read
// must carry. Extra criteria are merged in.
func (s Scope) Filter(extra bson.M) bson.M {
	filter := bson.M{"unit_id": s.ActiveUnitID}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

// Check rejects any payload naming a unit other than the active one. The
// empty string is allowed: writes stamp the active unit into it.
func (s Scope) Check(unitID string) error {
	if unitID != "" && unitID != s.ActiveUnitID {
		return apperrors.TenantIsolation(s.ActiveUnitID, unitID)
	}
	return nil
}

// Guard is the single choke point for isolation checks on rows read back
// from the store, with the mandatory audit trail on violations.
type Guard struct {
	log *logger.Logger
}

func NewGuard(log *logger.Logger) *Guard {
	return &Guard{log: log}
}

// Verify asserts a row fetched from the store belongs to the scope's active
// unit. A mismatch is a defect, audited and never retried.
func (g *Guard) Verify(scope Scope, rowUnitID, collection, rowID string) error {
	if rowUnitID == scope.ActiveUnitID {
		return nil
	}
	g.log.Error("tenant isolation violation",
		"active_unit_id", scope.ActiveUnitID,
		"row_unit_id", rowUnitID,
		"collection", collection,
		"row_id", rowID,
	)
	return apperrors.TenantIsolation(scope.ActiveUnitID, rowUnitID)
}

// Stamp fills the payload's unit field with the active unit after checking
// it does not already name a foreign one.
func (g *Guard) Stamp(scope Scope, unitID *string) error {
	if err := scope.Check(*unitID); err != nil {
		g.log.Error("tenant isolation violation on write",
			"active_unit_id", scope.ActiveUnitID,
			"payload_unit_id", *unitID,
		)
		return err
	}
	*unitID = scope.ActiveUnitID
	return nil
}

type contextKey string

const scopeKey contextKey = "tenant_scope"

// WithScope stores the scope in the request context; handlers resolve it
// back with FromContext.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

func FromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}
