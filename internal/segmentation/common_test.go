package segmentation

import "time"

// fixedNow is a stable reference instant for policies whose Consume logic
// branches on elapsed time; individual tests advance from it explicitly
// where timing matters.
var fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// messageInterval simulates a fast incremental-transcript cadence, well
// under the hybrid policy's phrase-mode rate threshold.
const messageInterval = 100 * time.Millisecond
