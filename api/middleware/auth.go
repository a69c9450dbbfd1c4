package middleware

import (
	"net/http"
	"strings"

	"github.com/kupilikula/rocketshop-market-backend/api/responses"
	pkgAuth "github.com/kupilikula/rocketshop-market-backend/pkg/auth"
	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

// Auth requires a customer bearer token and stores the customer on the
// request context for the handlers and the per-customer middleware after it.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="market"`)
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="market", error="invalid_token"`)
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			customerID, _ := claims.Customer()

			ctx := WithCustomerID(r.Context(), customerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, customerID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
