// Package metrics holds the Prometheus collectors for the API and workers.
// Every recorder is nil-safe so callers can leave metrics unwired in tests.
package metrics

const namespace = "rocketshop"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
