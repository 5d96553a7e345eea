package secrets

import (
	"context"
	"errors"
	"fmt"

	"mailgate/internal/config"
)

// Store is the key-value secret contract consumed by the credential layer.
// Every read and write is scoped by (subjectID, provider) so concurrent
// operations on different subjects never contend.
type Store interface {
	// Get returns the stored blob, or ErrNotFound when no secret exists
	// for the key.
	Get(ctx context.Context, subjectID, provider string) ([]byte, error)
	Put(ctx context.Context, subjectID, provider string, data []byte) error
	// Delete removes the secret. Deleting an absent secret is not an error.
	Delete(ctx context.Context, subjectID, provider string) error
}

// ErrNotFound indicates no secret is stored for the key. Callers must treat
// this differently from UnavailableError: the former means "not connected",
// the latter means "retry later".
var ErrNotFound = errors.New("secret not found")

// UnavailableError reports a backend outage (network, permissions, 5xx).
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("secret store %s unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a backend-outage condition.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// secretName builds the per-user secret identifier used by the cloud
// backends, e.g. "mailgate-user-u42-gmail".
func secretName(subjectID, provider string) string {
	return fmt.Sprintf("mailgate-user-%s-%s", subjectID, provider)
}

// Open constructs the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Secrets.Backend {
	case "gcp":
		return NewGCPStore(ctx, cfg.Secrets.GCPProjectID)
	case "aws":
		return NewAWSStore(ctx, cfg.Secrets.AWSRegion, cfg.Secrets.AWSPrefix)
	case "mysql":
		return NewMySQLStore(&cfg.MySQL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend: %s", cfg.Secrets.Backend)
	}
}
