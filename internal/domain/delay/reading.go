// Package delay holds the domain model for per-source render delay readings.
package delay

// Unknown is the sentinel delay value reported when a source's current
// delay could not be read (filter missing, source missing, or the control
// connection is down). It is never a legitimate device-reported value.
const Unknown int64 = -1

// DefaultFilterName is the filter this service reads and writes when the
// config does not override it.
const DefaultFilterName = "Render Delay"

// Reading is one source's current render delay in milliseconds,
// or Unknown when it could not be determined.
type Reading struct {
	Source  string
	DelayMS int64
}

// OK reports whether the reading holds a real value rather than the sentinel.
func (r Reading) OK() bool { return r.DelayMS != Unknown }
