package projection

import (
	"testing"

	"tab-live/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestActivityFeed_Projects_Events_In_Order(t *testing.T) {
	req := require.New(t)
	feed := NewActivityFeed(10)
	groupID := uuid.New()

	feed.Handle(event.GroupCreated{GroupID: groupID})
	feed.Handle(event.ParticipantJoined{GroupID: groupID, UserIDs: []uuid.UUID{uuid.New()}})
	feed.Handle(event.TabEntryDeleted{GroupID: groupID, TabEntryID: uuid.New()})

	rows := feed.Recent()
	req.Len(rows, 3)
	req.Equal(ActivityGroupCreated, rows[0].Kind)
	req.Equal(ActivityParticipantJoined, rows[1].Kind)
	req.Equal(ActivityTabEntryDeleted, rows[2].Kind)
}

func TestActivityFeed_Caps_Retention(t *testing.T) {
	req := require.New(t)
	feed := NewActivityFeed(2)
	groupID := uuid.New()

	feed.Handle(event.GroupCreated{GroupID: groupID})
	feed.Handle(event.GroupDeleted{GroupID: groupID})
	feed.Handle(event.GroupCreated{GroupID: groupID})

	rows := feed.Recent()
	req.Len(rows, 2)
	req.Equal(ActivityGroupDeleted, rows[0].Kind)
}

func TestActivityFeed_Filters_By_Group(t *testing.T) {
	req := require.New(t)
	feed := NewActivityFeed(10)
	mine := uuid.New()
	other := uuid.New()

	feed.Handle(event.GroupCreated{GroupID: mine})
	feed.Handle(event.GroupCreated{GroupID: other})
	feed.Handle(event.ParticipantLeft{GroupID: mine, UserID: uuid.New()})

	rows := feed.ForGroup(mine)
	req.Len(rows, 2)
	for _, row := range rows {
		req.Equal(mine, row.GroupID)
	}
}
