// Package stripe installs the Stripe credentials used by the payments gateway.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

// Environment is the Stripe mode a deployment runs against.
type Environment string

const (
	EnvTest Environment = "test"
	EnvLive Environment = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe secret key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", EnvTest, EnvLive)
)

// Secret and restricted keys both carry the mode in their prefix.
var keyPrefixes = map[Environment][]string{
	EnvTest: {"sk_test_", "rk_test_"},
	EnvLive: {"sk_live_", "rk_live_"},
}

// Configure validates the key against the configured mode and installs it
// for stripe-go's resource packages. A test deployment can never be given a
// live key, and the reverse.
func Configure(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (Environment, error) {
	env, err := ParseEnvironment(cfg.Environment())
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return "", errAPIKeyRequired
	}
	if !hasPrefix(key, keyPrefixes[env]) {
		return "", fmt.Errorf("stripe environment %q requires a %s key (%s)", env, env, strings.Join(keyPrefixes[env], "/"))
	}

	stripe.Key = key
	stripe.SetAppInfo(&stripe.AppInfo{Name: "rocketshop-market-backend"})

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", string(env)), "stripe configured")
	}
	return env, nil
}

// ParseEnvironment normalizes ROCKETSHOP_STRIPE_ENV; empty means test.
func ParseEnvironment(raw string) (Environment, error) {
	switch env := Environment(strings.ToLower(strings.TrimSpace(raw))); env {
	case "":
		return EnvTest, nil
	case EnvTest, EnvLive:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func hasPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
