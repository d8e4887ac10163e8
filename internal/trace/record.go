// Package trace defines the persisted and golden form of processor events.
//
// A Record is a flattened processor.Event: the action value is rendered to a
// string so records can be stored in SQLite and compared byte for byte in
// golden files.
package trace

import (
	"github.com/roach88/procstate/processor"
)

// Kind mirrors processor.EventKind in stored records.
type Kind string

// Record is one dispatch transition of one Processor.
type Record struct {
	Seq         int64  `json:"seq"`
	ProcessorID string `json:"processor_id"`
	Kind        Kind   `json:"kind"`
	EffectID    string `json:"effect_id,omitempty"`
	Value       string `json:"value,omitempty"`
}

// FromEvent converts a processor event into a record. Values are rendered
// with processor.Describe, preferring String methods.
func FromEvent(e processor.Event) Record {
	rec := Record{
		Seq:         e.Seq,
		ProcessorID: e.ProcessorID,
		Kind:        Kind(e.Kind),
		EffectID:    e.EffectID,
	}
	if e.Value != nil {
		rec.Value = processor.Describe(e.Value, true)
	}
	return rec
}

// Snapshot is the golden-file form of one scenario execution.
type Snapshot struct {
	Name    string
	Records []Record
	State   map[string]any
}

// CanonicalMap converts the snapshot into plain maps for MarshalCanonical.
func (s Snapshot) CanonicalMap() map[string]any {
	records := make([]any, len(s.Records))
	for i, r := range s.Records {
		m := map[string]any{
			"seq":  r.Seq,
			"kind": string(r.Kind),
		}
		if r.EffectID != "" {
			m["effect_id"] = r.EffectID
		}
		if r.Value != "" {
			m["value"] = r.Value
		}
		records[i] = m
	}

	out := map[string]any{
		"name":  s.Name,
		"trace": records,
	}
	if len(s.State) > 0 {
		out["state"] = s.State
	}
	return out
}

// Stats summarizes a trace.
type Stats struct {
	Actions        int `json:"actions"`
	PrivateActions int `json:"private_actions"`
	Effects        int `json:"effects"`
	Dropped        int `json:"dropped"`
	Cancellations  int `json:"cancellations"`
}

// Summarize counts records by kind.
func Summarize(records []Record) Stats {
	var st Stats
	for _, r := range records {
		switch processor.EventKind(r.Kind) {
		case processor.EventAction:
			st.Actions++
		case processor.EventPrivateAction:
			st.PrivateActions++
		case processor.EventEffectStarted:
			st.Effects++
		case processor.EventEffectDropped:
			st.Dropped++
		case processor.EventEffectCanceled, processor.EventCancelAll:
			st.Cancellations++
		}
	}
	return st
}

// Stable returns the records that are ordered deterministically for a
// settled run, renumbered from 1.
//
// effect_finished is reported from the effect's own goroutine after it
// returns, so for a canceled effect it may land anywhere after the
// cancellation. Every other kind is emitted under the dispatch lock.
func Stable(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if processor.EventKind(r.Kind) == processor.EventEffectFinished {
			continue
		}
		r.Seq = int64(len(out) + 1)
		out = append(out, r)
	}
	return out
}
