package domain

import "errors"

var (
	// ErrStoreUnavailable wraps any read or write failure against the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrEmptyCart is returned when a cart with no lines is submitted.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidTransition is returned for a status change out of sequence.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPlayback wraps audio device or permission failures. It is logged, never surfaced.
	ErrPlayback = errors.New("playback failed")

	// ErrStatusConflict means the stored status changed between read and conditional write.
	ErrStatusConflict = errors.New("order status changed concurrently")

	ErrNotFound         = errors.New("order not found")
	ErrMalformedOrder   = errors.New("malformed order record")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrItemUnavailable  = errors.New("menu item unavailable")
	ErrInvalidQuantity  = errors.New("invalid quantity")
)
