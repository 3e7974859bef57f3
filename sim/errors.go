package sim

import "errors"

// --- Placement errors ---

var (
	// ErrCapacityExceeded is returned by a Holder when an item does not fit in its remaining capacity.
	// The Cooker handles it locally by trying the next holder; it never escapes Cooker.Admit.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrAdmissionFailed indicates that no unit and no buffer could take an item.
	// The Kitchen reacts by pausing the item's origin line. The item stays at the head of the
	// line's inbound queue and is retried on a later cycle.
	//
	// Callers should use `errors.Is(err, ErrAdmissionFailed)` to check for this class of failure.
	ErrAdmissionFailed = errors.New("admission failed")

	// ErrItemTooLarge indicates that an item is larger than the capacity of every unit. Such an item
	// can never be cooked, so it is not admitted even where a buffer could hold it. Errors carrying it
	// also wrap ErrAdmissionFailed.
	ErrItemTooLarge = errors.New("item larger than any unit")

	// ErrInvalidItem indicates an item whose size is zero, negative or NaN. Like ErrItemTooLarge it is
	// terminal for the item and blocks its line.
	ErrInvalidItem = errors.New("item size must be positive")
)

// --- Lifecycle errors ---

var (
	// ErrConfigurationInvalid indicates malformed or missing capacity configuration. Nothing is started
	// when a config fails validation.
	ErrConfigurationInvalid = errors.New("invalid kitchen configuration")

	// ErrInterruptedDuringCompletion marks an item whose cook timer was abandoned by a hard kill. The
	// item never reaches its line's outbound side.
	ErrInterruptedDuringCompletion = errors.New("interrupted during completion")

	// ErrServerNotRunning is returned by Server operations that need a started, not yet stopping, server.
	ErrServerNotRunning = errors.New("server is not running")

	// ErrLineNotFound is returned when a line id is not registered.
	ErrLineNotFound = errors.New("line not found")
)
