package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TabEntryCommand is a decoded live-edit command: create when ID is nil,
// update otherwise. CreatorID is the authenticated sender, never taken
// from the payload.
type TabEntryCommand struct {
	ID           *uuid.UUID
	GroupID      uuid.UUID
	CreatorID    uuid.UUID
	PaidByUserID uuid.UUID
	Title        string
	Description  string
	Amount       decimal.Decimal
	Currency     string
	Splits       []SplitCommand
}

// SplitCommand is one requested split line of a TabEntryCommand.
type SplitCommand struct {
	ID             *uuid.UUID
	ParticipantID  uuid.UUID
	Split          Split
	ResolvedAmount decimal.Decimal
}
