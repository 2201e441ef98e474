package middleware

import (
	"net/http"
	"strings"

	"navalha/pkg/logger"
	"navalha/pkg/tenant"

	"github.com/golang-jwt/jwt/v5"
)

// ActiveUnitHeader names the unit the caller is operating as for this
// request. Switching units is a pure header change on the client side; the
// server holds no unit session state.
const ActiveUnitHeader = "X-Active-Unit"

type unitClaims struct {
	Units []string `json:"units"`
	jwt.RegisteredClaims
}

// UnitAuth verifies the bearer token, reads the caller's authorized unit
// set from its claims, and installs a tenant scope for the unit named by
// X-Active-Unit. Requests naming a unit outside the claim set are rejected
// before any handler runs.
func UnitAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractBearerToken(r)
			if tokenStr == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := &unitClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Warn("Rejected invalid token",
					"request_id", requestIDFrom(r),
					"error", err,
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			activeUnit := r.Header.Get(ActiveUnitHeader)
			if activeUnit == "" && len(claims.Units) == 1 {
				activeUnit = claims.Units[0]
			}

			scope, err := tenant.NewScope(activeUnit, claims.Units)
			if err != nil {
				log.Error("Tenant scope rejected",
					"request_id", requestIDFrom(r),
					"active_unit", activeUnit,
					"authorized_units", claims.Units,
				)
				writeAuthError(w, http.StatusForbidden, "unit not authorized for caller")
				return
			}

			next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), scope)))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
