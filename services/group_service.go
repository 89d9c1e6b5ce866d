package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tab-live/domain"
	"tab-live/domain/event"
	"tab-live/repositories"

	"github.com/google/uuid"
)

// GroupService owns group and membership persistence and is the
// authoritative GroupStore behind the topology cache. Every committed
// membership mutation is published on the bus so the live session layer
// converges on the new topology.
type GroupService struct {
	log    *slog.Logger
	groups repositories.IGroupRepository
	bus    *event.Bus
	now    func() time.Time
}

func NewGroupService(log *slog.Logger, groups repositories.IGroupRepository, bus *event.Bus) *GroupService {
	return &GroupService{log: log, groups: groups, bus: bus, now: time.Now}
}

// ListGroupsForUser implements contract.GroupStore.
func (s *GroupService) ListGroupsForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.groups.ListGroupsForUser(userID)
}

// CreateGroup persists a group with its initial participants, then
// publishes GroupCreated.
func (s *GroupService) CreateGroup(_ context.Context, name, currency string,
	createdBy uuid.UUID, participantIDs []uuid.UUID) (domain.Group, error) {

	group := domain.Group{
		ID:        uuid.New(),
		Name:      name,
		Currency:  currency,
		CreatedBy: createdBy,
		CreatedAt: s.now().UTC(),
	}
	if err := s.groups.StoreGroup(group); err != nil {
		return domain.Group{}, fmt.Errorf("storing group: %w", err)
	}
	for _, userID := range participantIDs {
		if err := s.groups.AddMember(group.ID, userID); err != nil {
			return domain.Group{}, fmt.Errorf("adding member %s: %w", userID, err)
		}
	}

	s.bus.Publish(event.GroupCreated{GroupID: group.ID, ParticipantIDs: participantIDs})
	s.log.Info("Group created", "group_id", group.ID, "participants", len(participantIDs))
	return group, nil
}

// AddParticipants joins users to a group and publishes ParticipantJoined.
func (s *GroupService) AddParticipants(_ context.Context, groupID uuid.UUID, userIDs []uuid.UUID) error {
	if _, err := s.groups.FindGroup(groupID); err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := s.groups.AddMember(groupID, userID); err != nil {
			return fmt.Errorf("adding member %s: %w", userID, err)
		}
	}

	s.bus.Publish(event.ParticipantJoined{GroupID: groupID, UserIDs: userIDs})
	return nil
}

// RemoveParticipant detaches one user from a group and publishes
// ParticipantLeft.
func (s *GroupService) RemoveParticipant(_ context.Context, groupID, userID uuid.UUID) error {
	if _, err := s.groups.FindGroup(groupID); err != nil {
		return err
	}
	if err := s.groups.RemoveMember(groupID, userID); err != nil {
		return fmt.Errorf("removing member %s: %w", userID, err)
	}

	s.bus.Publish(event.ParticipantLeft{GroupID: groupID, UserID: userID})
	return nil
}

// DeleteGroup removes the group and its membership edges, then
// publishes GroupDeleted.
func (s *GroupService) DeleteGroup(_ context.Context, groupID uuid.UUID) error {
	if _, err := s.groups.FindGroup(groupID); err != nil {
		return err
	}
	if err := s.groups.DeleteGroup(groupID); err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}

	s.bus.Publish(event.GroupDeleted{GroupID: groupID})
	return nil
}

// RegisterParticipant upserts the group-local projection of a user,
// fed by the user service's committed events.
func (s *GroupService) RegisterParticipant(p domain.GroupParticipant) error {
	return s.groups.StoreParticipant(p)
}
