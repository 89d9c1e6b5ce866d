// Package projection builds read models from committed domain events.
// Projections never emit events and never touch the write path.
package projection

import (
	"sync"
	"time"

	"tab-live/domain/event"

	"github.com/google/uuid"
)

// ActivityKind labels one row of the activity feed.
type ActivityKind string

const (
	ActivityGroupCreated      ActivityKind = "GROUP_CREATED"
	ActivityParticipantJoined ActivityKind = "PARTICIPANT_JOINED"
	ActivityParticipantLeft   ActivityKind = "PARTICIPANT_LEFT"
	ActivityTabEntryDeleted   ActivityKind = "TAB_ENTRY_DELETED"
	ActivityGroupDeleted      ActivityKind = "GROUP_DELETED"
)

type ActivityRow struct {
	Kind    ActivityKind
	GroupID uuid.UUID
	At      time.Time
}

// ActivityFeed keeps the most recent group activity in memory, newest
// last, capped at a fixed size. It subscribes to the bus like any other
// handler and is read by the debug endpoint.
type ActivityFeed struct {
	mu   sync.RWMutex
	rows []ActivityRow
	cap  int
	now  func() time.Time
}

func NewActivityFeed(capacity int) *ActivityFeed {
	return &ActivityFeed{cap: capacity, now: time.Now}
}

// Handle implements event.Handler.
func (f *ActivityFeed) Handle(e event.DomainEvent) {
	var row ActivityRow
	switch evt := e.(type) {
	case event.GroupCreated:
		row = ActivityRow{Kind: ActivityGroupCreated, GroupID: evt.GroupID}
	case event.ParticipantJoined:
		row = ActivityRow{Kind: ActivityParticipantJoined, GroupID: evt.GroupID}
	case event.ParticipantLeft:
		row = ActivityRow{Kind: ActivityParticipantLeft, GroupID: evt.GroupID}
	case event.TabEntryDeleted:
		row = ActivityRow{Kind: ActivityTabEntryDeleted, GroupID: evt.GroupID}
	case event.GroupDeleted:
		row = ActivityRow{Kind: ActivityGroupDeleted, GroupID: evt.GroupID}
	default:
		return
	}
	row.At = f.now()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	if len(f.rows) > f.cap {
		f.rows = f.rows[len(f.rows)-f.cap:]
	}
}

// Recent returns the retained rows, oldest first.
func (f *ActivityFeed) Recent() []ActivityRow {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rows := make([]ActivityRow, len(f.rows))
	copy(rows, f.rows)
	return rows
}

// ForGroup filters the retained rows down to one group.
func (f *ActivityFeed) ForGroup(groupID uuid.UUID) []ActivityRow {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var rows []ActivityRow
	for _, row := range f.rows {
		if row.GroupID == groupID {
			rows = append(rows, row)
		}
	}
	return rows
}
