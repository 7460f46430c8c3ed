package payment

import "errors"

// ErrSubscriptionNotFound is returned when an update targets a missing subscription.
var ErrSubscriptionNotFound = errors.New("subscription not found")
