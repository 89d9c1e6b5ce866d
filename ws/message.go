// Package ws is the WebSocket edge of the live session layer: the
// upgrade handler, the per-connection pumps, the inbound command
// dispatcher and the outbound broadcast engine.
package ws

import (
	"encoding/json"

	"tab-live/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MessageType string

const (
	TypeNewTabEntry              MessageType = "NEW_TAB_ENTRY"
	TypeUpdatedTabEntry          MessageType = "UPDATED_TAB_ENTRY"
	TypeTabEntryDeleted          MessageType = "TAB_ENTRY_DELETED"
	TypeGroupParticipantsChanged MessageType = "GROUP_PARTICIPANTS_CHANGED"
	TypeError                    MessageType = "ERROR"
)

// Envelope is the outer frame shared by both directions. Payload is a
// nested JSON document carried as a string, exactly as the clients send it.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload string      `json:"payload"`
}

// EncodeFrame wraps a payload into an envelope and returns the bytes to
// put on the wire.
func EncodeFrame(t MessageType, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Payload: string(inner)})
}

const (
	// CodeInvalidJSON covers malformed envelopes, unknown types and
	// payloads that fail validation, matching the client protocol.
	CodeInvalidJSON = "INVALID_JSON"
	// CodeCommandFailed covers rejections from the ledger handler.
	CodeCommandFailed = "COMMAND_FAILED"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TabEntryPayload is the inbound command payload for both NEW_TAB_ENTRY
// and UPDATED_TAB_ENTRY. ID is required on the update path only.
type TabEntryPayload struct {
	ID           *uuid.UUID      `json:"id,omitempty"`
	GroupID      uuid.UUID       `json:"groupId" validate:"required"`
	PaidByUserID uuid.UUID       `json:"paidByUserId" validate:"required"`
	Title        string          `json:"title" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=2000"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	Splits       []SplitPayload  `json:"splits" validate:"required,min=1,dive"`
}

type SplitPayload struct {
	ID             *uuid.UUID      `json:"id,omitempty"`
	ParticipantID  uuid.UUID       `json:"participantId" validate:"required"`
	Split          domain.Split    `json:"split"`
	ResolvedAmount decimal.Decimal `json:"resolvedAmount"`
}

type TabEntryDeletedPayload struct {
	GroupID    uuid.UUID `json:"groupId"`
	TabEntryID uuid.UUID `json:"tabEntryId"`
}

type GroupParticipantsChangedPayload struct {
	GroupID uuid.UUID `json:"groupId"`
}

// ToCommand lifts the wire payload into the domain command, stamping the
// authenticated sender as creator.
func (p TabEntryPayload) ToCommand(senderID uuid.UUID) domain.TabEntryCommand {
	splits := make([]domain.SplitCommand, 0, len(p.Splits))
	for _, s := range p.Splits {
		splits = append(splits, domain.SplitCommand{
			ID:             s.ID,
			ParticipantID:  s.ParticipantID,
			Split:          s.Split,
			ResolvedAmount: s.ResolvedAmount,
		})
	}
	return domain.TabEntryCommand{
		ID:           p.ID,
		GroupID:      p.GroupID,
		CreatorID:    senderID,
		PaidByUserID: p.PaidByUserID,
		Title:        p.Title,
		Description:  p.Description,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Splits:       splits,
	}
}
