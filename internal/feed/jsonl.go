package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/banshee-data/roadtrust/internal/monitoring"
)

// ReplayFeed replays snapshots from a JSONL stream, one snapshot per line.
// Malformed lines and malformed event entries are skipped rather than
// surfaced: a broken record must never stall the tick loop.
type ReplayFeed struct {
	scanner *bufio.Scanner

	// SkippedLines counts lines that failed to parse.
	SkippedLines int
	// SkippedEvents counts event entries dropped for an unknown kind.
	SkippedEvents int
}

// NewReplayFeed creates a ReplayFeed reading from r.
func NewReplayFeed(r io.Reader) *ReplayFeed {
	sc := bufio.NewScanner(r)
	// Snapshots with hundreds of vehicles exceed the default 64KB token size.
	sc.Buffer(make([]byte, 0, 1<<16), 1<<24)
	return &ReplayFeed{scanner: sc}
}

// Next returns the next snapshot, or io.EOF when the stream is exhausted.
func (f *ReplayFeed) Next(ctx context.Context) (Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return Snapshot{}, err
			}
			return Snapshot{}, io.EOF
		}

		line := f.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var snap Snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			f.SkippedLines++
			monitoring.Logf("feed: skipping malformed snapshot line: %v", err)
			continue
		}
		f.sanitizeEvents(&snap)
		return snap, nil
	}
}

// sanitizeEvents drops event entries with an unknown kind. A dropped event is
// simply "not yet due" from the pipeline's point of view.
func (f *ReplayFeed) sanitizeEvents(snap *Snapshot) {
	for i := range snap.Vehicles {
		v := &snap.Vehicles[i]
		if len(v.Events) == 0 {
			continue
		}
		kept := v.Events[:0]
		for _, ev := range v.Events {
			if !ev.Kind.Valid() {
				f.SkippedEvents++
				continue
			}
			kept = append(kept, ev)
		}
		v.Events = kept
	}
}

// WriteSnapshot writes one snapshot as a JSONL line.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
