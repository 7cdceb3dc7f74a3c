// Package settings exposes the flat key/value store for global overrides.
// Values here are global, not per-conversation.
package settings

import "context"

// Well-known keys.
const (
	KeyPersona     = "persona"
	KeyTemperature = "temperature"
)

// Store reads and writes configuration values. Get returns the empty string
// when a key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
