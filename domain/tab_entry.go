package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitType defines how an expense is split among participants.
type SplitType string

const (
	// SplitEqual splits equally among all participants; Value is ignored.
	SplitEqual SplitType = "EQUAL"
	// SplitExactAmount makes the participant pay an exact amount held in Value.
	SplitExactAmount SplitType = "EXACT_AMOUNT"
	// SplitPercentage makes the participant pay Value percent (0-100) of the total.
	SplitPercentage SplitType = "PERCENTAGE"
	// SplitShares splits by parts: the participant pays Value/totalShares of the total.
	SplitShares SplitType = "SHARES"
)

// Split is a tagged variant: Type selects the strategy, Value carries its
// parameter and is nil for SplitEqual.
type Split struct {
	Type  SplitType        `json:"type"`
	Value *decimal.Decimal `json:"value,omitempty"`
}

// TabEntrySplit is one participant's share in an expense split.
// ResolvedAmount is computed by the client and transported as-is.
type TabEntrySplit struct {
	ID             uuid.UUID         `json:"id"`
	ParticipantID  uuid.UUID         `json:"participantId"`
	Participant    *GroupParticipant `json:"participant,omitempty"`
	Split          Split             `json:"split"`
	ResolvedAmount decimal.Decimal   `json:"resolvedAmount"`
}

// TabEntry is an expense entry within a group.
type TabEntry struct {
	ID             uuid.UUID         `json:"id"`
	GroupID        uuid.UUID         `json:"groupId"`
	Creator        GroupParticipant  `json:"creator"`
	PaidBy         GroupParticipant  `json:"paidBy"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Splits         []TabEntrySplit   `json:"splits"`
	CreatedAt      time.Time         `json:"createdAt"`
	LastModifiedAt time.Time         `json:"lastModifiedAt"`
	LastModifiedBy GroupParticipant  `json:"lastModifiedBy"`
	Version        int               `json:"version"`
	DeletedAt      *time.Time        `json:"deletedAt,omitempty"`
	DeletedBy      *GroupParticipant `json:"deletedBy,omitempty"`
}

func (e TabEntry) IsDeleted() bool {
	return e.DeletedAt != nil
}

type ChangeType string

const (
	ChangeCreated ChangeType = "CREATED"
	ChangeUpdated ChangeType = "UPDATED"
	ChangeDeleted ChangeType = "DELETED"
)

// TabEntryHistory is an audit row written alongside every entry mutation.
type TabEntryHistory struct {
	ID         uuid.UUID  `json:"id"`
	TabEntryID uuid.UUID  `json:"tabEntryId"`
	GroupID    uuid.UUID  `json:"groupId"`
	ChangeType ChangeType `json:"changeType"`
	ChangedBy  uuid.UUID  `json:"changedBy"`
	ChangedAt  time.Time  `json:"changedAt"`
	Version    int        `json:"version"`
}
