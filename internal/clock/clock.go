package clock

import "time"

// NowFunc is the time source used for record and signal timestamps.  Tests
// swap it for a fixed function when they need deterministic output.
var NowFunc = time.Now

// Now returns the current time via NowFunc.
func Now() time.Time { return NowFunc() }
