package testutil

import "time"

// ResultTimeout bounds how long a test waits for a worker callback. Real
// evaluations finish in microseconds; the margin absorbs slow CI schedulers.
const ResultTimeout = 5 * time.Second

// QuietPeriod is how long a test waits to conclude that no callback is coming.
const QuietPeriod = 100 * time.Millisecond

// PollInterval is the default interval for Poll and WaitForState.
const PollInterval = 5 * time.Millisecond
