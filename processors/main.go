// Package processors holds the payment processor integrations. Clients are
// constructed once at boot and injected through the app context; a client
// whose credentials are absent still constructs, but every call returns
// ErrNotConfigured so the failure surfaces as a configuration error at the
// HTTP layer instead of a nil dereference at the call site.
package processors

import "github.com/pkg/errors"

var (
	ErrNotConfigured    = errors.New("processor not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Local three-state status vocabulary. Each processor's native statuses are
// mapped into these; anything unmapped is irrelevant and must be acknowledged
// without effect.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
