package app

import (
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/store"
)

// journalSink forwards hub events to the audit recorder.
type journalSink struct {
	rec *store.Recorder
}

func (s journalSink) Publish(ev core.Event) {
	s.rec.Record(store.Entry{
		Kind:        string(ev.Kind),
		ConnID:      ev.ConnID,
		Remote:      ev.Remote,
		Identity:    int32(ev.Identity),
		Destination: int32(ev.Destination),
		Recipients:  ev.Recipients,
		Code:        ev.Code,
		CreatedAt:   ev.At,
	})
}
