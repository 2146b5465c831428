package metrics

import "sync/atomic"

// Counters tracks inbound requests and outbound responses for
// observability only. No backpressure is tied to these values.
type Counters struct {
	requests  atomic.Int64
	responses atomic.Int64
}

// New returns zeroed counters.
func New() *Counters {
	return &Counters{}
}

// Request records one parsed inbound envelope.
func (c *Counters) Request() {
	c.requests.Add(1)
}

// Response records one outbound write.
func (c *Counters) Response() {
	c.responses.Add(1)
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Requests  int64 `json:"requests"`
	Responses int64 `json:"responses"`
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Requests:  c.requests.Load(),
		Responses: c.responses.Load(),
	}
}
