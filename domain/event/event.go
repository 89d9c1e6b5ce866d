// Package event carries the after-commit domain events that keep the
// live topology consistent with the persisted group state.
package event

import "github.com/google/uuid"

// DomainEvent is a fact produced by a collaborator strictly after its
// transaction has committed. Events are never produced speculatively.
type DomainEvent interface {
	Name() string
}

// Handler consumes domain events. Handlers must tolerate arbitrary
// delivery delay relative to the write that produced the event.
type Handler interface {
	Handle(e DomainEvent)
}

type GroupCreated struct {
	GroupID        uuid.UUID
	ParticipantIDs []uuid.UUID
}

func (GroupCreated) Name() string { return "GROUP_CREATED" }

type ParticipantJoined struct {
	GroupID uuid.UUID
	UserIDs []uuid.UUID
}

func (ParticipantJoined) Name() string { return "PARTICIPANT_JOINED" }

type ParticipantLeft struct {
	GroupID uuid.UUID
	UserID  uuid.UUID
}

func (ParticipantLeft) Name() string { return "PARTICIPANT_LEFT" }

type TabEntryDeleted struct {
	GroupID    uuid.UUID
	TabEntryID uuid.UUID
}

func (TabEntryDeleted) Name() string { return "TAB_ENTRY_DELETED" }

type GroupDeleted struct {
	GroupID uuid.UUID
}

func (GroupDeleted) Name() string { return "GROUP_DELETED" }
