package trustnet

import (
	"strconv"
	"sync"

	"github.com/banshee-data/roadtrust/internal/geo"
)

// DispatchKeyMode selects the deduplication key for emergency dispatch.
type DispatchKeyMode string

const (
	// KeyReporterTimestamp dedups on (reporter, timestamp): a reporter may
	// dispatch again for a later event. This is the default policy.
	KeyReporterTimestamp DispatchKeyMode = "reporter_timestamp"
	// KeyReporterOnly dedups on reporter id alone: at most one dispatch per
	// reporter for the run's lifetime.
	KeyReporterOnly DispatchKeyMode = "reporter"
)

// DispatchEvent is one emergency response trigger.
type DispatchEvent struct {
	Reporter  string    `json:"reporter_id"`
	Timestamp float64   `json:"timestamp"`
	Location  geo.Point `json:"location"`
}

// Dispatcher fires at most one emergency response per unique report
// identity. Insert-if-absent on the ledger is atomic under the mutex, so
// concurrent validators cannot double-dispatch.
type Dispatcher struct {
	threshold float64
	keyMode   DispatchKeyMode

	mu     sync.Mutex
	ledger map[string]struct{}
}

// NewDispatcher creates a dispatcher firing at scores >= threshold
// (canonically 0.7).
func NewDispatcher(threshold float64, keyMode DispatchKeyMode) *Dispatcher {
	if keyMode == "" {
		keyMode = KeyReporterTimestamp
	}
	return &Dispatcher{
		threshold: threshold,
		keyMode:   keyMode,
		ledger:    make(map[string]struct{}),
	}
}

// MaybeDispatch issues a dispatch for the report if it is validated,
// dispatch-eligible, and its key has not dispatched before. Returns the
// event and true iff a new dispatch was issued.
func (d *Dispatcher) MaybeDispatch(r *IncidentReport) (DispatchEvent, bool) {
	if !r.Validated() || r.Score < d.threshold {
		return DispatchEvent{}, false
	}

	key := d.key(r)
	d.mu.Lock()
	if _, seen := d.ledger[key]; seen {
		d.mu.Unlock()
		return DispatchEvent{}, false
	}
	d.ledger[key] = struct{}{}
	d.mu.Unlock()

	return DispatchEvent{
		Reporter:  r.Reporter,
		Timestamp: r.Timestamp,
		Location:  r.Location,
	}, true
}

// LedgerSize returns the number of dispatched keys.
func (d *Dispatcher) LedgerSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ledger)
}

func (d *Dispatcher) key(r *IncidentReport) string {
	if d.keyMode == KeyReporterOnly {
		return r.Reporter
	}
	return r.Reporter + "_" + strconv.FormatFloat(r.Timestamp, 'f', -1, 64)
}
