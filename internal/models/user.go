// Package models defines the data types shared across services.
package models

import (
	"encoding/json"
	"fmt"
)

// UserProfile is the backend's view of the signed-in user. It is replaced
// wholesale on every refresh, never merged field by field.
type UserProfile struct {
	Email                string  `json:"email"`
	UID                  string  `json:"uid"`
	APICallsRemaining    int     `json:"api_calls_remaining"`
	IsPremium            bool    `json:"is_premium"`
	StripeCustomerID     *string `json:"stripe_customer_id"`
	StripeSubscriptionID *string `json:"stripe_subscription_id"`
}

// RemainingCalls is a call count that may also be the literal string
// "unlimited" on the wire.
type RemainingCalls struct {
	Count     int
	Unlimited bool
}

// UnmarshalJSON accepts either a JSON number or the string "unlimited".
func (r *RemainingCalls) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		r.Count = n
		r.Unlimited = false
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "unlimited" {
			r.Count = 0
			r.Unlimited = true
			return nil
		}
		return fmt.Errorf("unexpected remaining-calls value %q", s)
	}

	return fmt.Errorf("remaining-calls is neither a number nor a string")
}

// MarshalJSON mirrors the wire format.
func (r RemainingCalls) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(r.Count)
}

// String renders the count for display.
func (r RemainingCalls) String() string {
	if r.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", r.Count)
}

// UsageSnapshot is the backend's current view of remaining quota. It is
// fetched on demand and considered stale immediately after any transform
// call; it is never persisted.
type UsageSnapshot struct {
	APICallsRemaining RemainingCalls `json:"api_calls_remaining"`
	IsPremium         bool           `json:"is_premium"`
}
