package community

import "errors"

var (
	// ErrMissingTotalCount is returned when the first inventory page has no total_inventory_count.
	ErrMissingTotalCount = errors.New("inventory page is missing total_inventory_count")
	ErrSessionRequired   = errors.New("inventory sync requires a logged in session")
	// ErrNotSuccessful is returned when a response carries a success flag other than 1 or true.
	ErrNotSuccessful = errors.New("steam reported success != 1")
)
