package services

import (
	"context"
	"testing"

	"tab-live/domain"
	"tab-live/domain/event"
	apperrors "tab-live/errors"
	"tab-live/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newGroupService(t *testing.T) (*GroupService, *event.Bus) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromString("ERROR")
	bus := event.NewBus(log, 8)
	return NewGroupService(log, repositories.NewGroupRepository(db, log), bus), bus
}

func TestGroupService_Create_Stores_Members_And_Publishes(t *testing.T) {
	req := require.New(t)
	service, bus := newGroupService(t)
	creator := uuid.New()
	other := uuid.New()

	// When a group is created with two participants
	group, err := service.CreateGroup(context.Background(), "Flatmates", "EUR",
		creator, []uuid.UUID{creator, other})
	req.NoError(err)

	// Then both members can resolve it as theirs
	for _, userID := range []uuid.UUID{creator, other} {
		groups, err := service.ListGroupsForUser(context.Background(), userID)
		req.NoError(err)
		req.Equal([]uuid.UUID{group.ID}, groups)
	}

	// And GroupCreated was published after the writes
	events := drainEvents(bus)
	req.Len(events, 1)
	created, ok := events[0].(event.GroupCreated)
	req.True(ok)
	req.Equal(group.ID, created.GroupID)
	req.ElementsMatch([]uuid.UUID{creator, other}, created.ParticipantIDs)
}

func TestGroupService_Membership_Round_Trip(t *testing.T) {
	req := require.New(t)
	service, bus := newGroupService(t)
	creator := uuid.New()
	joiner := uuid.New()

	group, err := service.CreateGroup(context.Background(), "Flatmates", "EUR",
		creator, []uuid.UUID{creator})
	req.NoError(err)
	drainEvents(bus)

	// When a user joins and later leaves
	req.NoError(service.AddParticipants(context.Background(), group.ID, []uuid.UUID{joiner}))
	req.NoError(service.RemoveParticipant(context.Background(), group.ID, joiner))

	// Then they no longer resolve the group
	groups, err := service.ListGroupsForUser(context.Background(), joiner)
	req.NoError(err)
	req.Empty(groups)

	// And one event was published per committed mutation
	events := drainEvents(bus)
	req.Len(events, 2)
	joined, ok := events[0].(event.ParticipantJoined)
	req.True(ok)
	req.Equal([]uuid.UUID{joiner}, joined.UserIDs)
	left, ok := events[1].(event.ParticipantLeft)
	req.True(ok)
	req.Equal(joiner, left.UserID)
}

func TestGroupService_Mutations_On_Unknown_Group_Publish_Nothing(t *testing.T) {
	req := require.New(t)
	service, bus := newGroupService(t)

	err := service.AddParticipants(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	req.ErrorIs(err, apperrors.ErrGroupNotFound)

	err = service.RemoveParticipant(context.Background(), uuid.New(), uuid.New())
	req.ErrorIs(err, apperrors.ErrGroupNotFound)

	err = service.DeleteGroup(context.Background(), uuid.New())
	req.ErrorIs(err, apperrors.ErrGroupNotFound)

	req.Empty(drainEvents(bus))
}

func TestGroupService_Delete_Publishes_GroupDeleted(t *testing.T) {
	req := require.New(t)
	service, bus := newGroupService(t)
	creator := uuid.New()

	group, err := service.CreateGroup(context.Background(), "Flatmates", "EUR",
		creator, []uuid.UUID{creator})
	req.NoError(err)
	drainEvents(bus)

	req.NoError(service.DeleteGroup(context.Background(), group.ID))

	groups, err := service.ListGroupsForUser(context.Background(), creator)
	req.NoError(err)
	req.Empty(groups)

	events := drainEvents(bus)
	req.Len(events, 1)
	deleted, ok := events[0].(event.GroupDeleted)
	req.True(ok)
	req.Equal(group.ID, deleted.GroupID)
}

func TestGroupService_Register_And_Project_Participant(t *testing.T) {
	req := require.New(t)
	service, _ := newGroupService(t)

	participant := domain.GroupParticipant{UserID: uuid.New(), Username: "clara", UserType: domain.UserRegistered}
	req.NoError(service.RegisterParticipant(participant))
}
