package notify

import (
	"context"
	"sort"

	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/store"
)

// AuditSink records every event in a keyed repository.
type AuditSink struct {
	events dao.Service[string, Event]
}

func (s *AuditSink) Notify(ctx context.Context, event *Event) error {
	return s.events.Save(ctx, event)
}

// History returns events for an instance ordered by time.
func (s *AuditSink) History(ctx context.Context, instanceID string) ([]*Event, error) {
	events, err := s.events.List(ctx, dao.NewParameter("instance_id", instanceID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events, nil
}

// NewAuditSink creates an AuditSink; a nil repository defaults to memory.
func NewAuditSink(events dao.Service[string, Event]) *AuditSink {
	if events == nil {
		events = store.NewMemoryStore[string, Event](func(e *Event) string { return e.ID })
	}
	return &AuditSink{events: events}
}
