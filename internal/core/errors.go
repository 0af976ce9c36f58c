package core

import "errors"

// Error classes for a run. Concrete errors wrap one of these so callers can
// classify them with errors.Is.
var (
	// ErrConfiguration is fatal and raised before any network call.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider covers a failed search for a single query term.
	ErrProvider = errors.New("provider error")
	// ErrDelivery covers a batch the messaging channel did not accept.
	ErrDelivery = errors.New("delivery error")
	// ErrPersistence covers history reads and writes.
	ErrPersistence = errors.New("persistence error")
)
