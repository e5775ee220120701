package session

import (
	"errors"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/gateway"
)

// Report describes what a logout did remotely. The local session is
// always cleared regardless of its content.
type Report struct {
	// Token is the session that was ended.
	Token storefront.AccessToken
	// Flushed is set when the persisted cart was not empty and an order
	// was submitted.
	Flushed bool
	// Order is the result of the order submission, zero when not Flushed.
	Order gateway.Result
	// Revoke is the result of the token deletion.
	Revoke gateway.Result
	// Warnings holds the non-blocking remote failures.
	Warnings []error
}

// Revoked reports whether the token is gone on the server, either deleted
// now or already missing.
func (r Report) Revoked() bool {
	return r.Revoke.Outcome == gateway.OutcomeOK || r.Revoke.Outcome == gateway.OutcomeNotFound
}

// Err joins the warnings into one error, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Warnings...)
}

func (r Report) orderLabel() string {
	if !r.Flushed {
		return "skipped"
	}
	return r.Order.Outcome.String()
}
