// Package telemetry provides the monotonic clock, latency histograms, and
// ambient counters shared across matchcore's stages: nothing on the
// matching hot path touches wall-clock time or a histogram directly
// without going through here (§3 "conversion to nanoseconds is a
// calibration concern", §7 exhaustion/drop/parse-error counters).
package telemetry

import (
	"time"

	"matchcore/fxp"
)

// processStart carries the monotonic clock reading Now measures from.
var processStart = time.Now()

// Now reads the monotonic clock and returns it as an fxp.Timestamp: the
// wall-clock nanoseconds of process start plus the monotonic time elapsed
// since, so wall-clock adjustments never move it backwards.
// Hardware-timestamp calibration is out of scope.
func Now() fxp.Timestamp {
	return fxp.Timestamp(processStart.UnixNano() + int64(time.Since(processStart)))
}
