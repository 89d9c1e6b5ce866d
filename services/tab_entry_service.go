package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tab-live/domain"
	"tab-live/domain/event"
	apperrors "tab-live/errors"
	"tab-live/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// TabEntryService validates and persists ledger commands. It is the
// concrete ledger handler behind the dispatcher: the returned entry is
// fully resolved (server-assigned id, denormalized participants,
// version) and is what gets broadcast to the group.
//
// Deletion publishes its domain event only after the transaction has
// committed; create and update publish nothing because the dispatcher
// broadcasts their result directly.
type TabEntryService struct {
	log     *slog.Logger
	groups  repositories.IGroupRepository
	entries repositories.ITabEntryRepository
	bus     *event.Bus
	now     func() time.Time
}

func NewTabEntryService(log *slog.Logger, groups repositories.IGroupRepository,
	entries repositories.ITabEntryRepository, bus *event.Bus) *TabEntryService {
	return &TabEntryService{
		log:     log,
		groups:  groups,
		entries: entries,
		bus:     bus,
		now:     time.Now,
	}
}

// Create persists a new entry. A client-supplied id is honored so
// optimistic clients can render before the round trip; absent one, the
// server assigns it.
func (s *TabEntryService) Create(ctx context.Context, cmd domain.TabEntryCommand) (domain.TabEntry, error) {
	if _, err := s.groups.FindGroup(cmd.GroupID); err != nil {
		return domain.TabEntry{}, err
	}
	creator, err := s.groups.FindParticipant(cmd.CreatorID)
	if err != nil {
		return domain.TabEntry{}, err
	}
	paidBy, err := s.groups.FindParticipant(cmd.PaidByUserID)
	if err != nil {
		return domain.TabEntry{}, err
	}
	splits, err := s.resolveSplits(cmd.Splits)
	if err != nil {
		return domain.TabEntry{}, err
	}

	entryID := uuid.New()
	if cmd.ID != nil {
		entryID = *cmd.ID
	}
	now := s.now().UTC()

	entry := domain.TabEntry{
		ID:             entryID,
		GroupID:        cmd.GroupID,
		Creator:        creator,
		PaidBy:         paidBy,
		Title:          cmd.Title,
		Description:    cmd.Description,
		Amount:         cmd.Amount,
		Currency:       cmd.Currency,
		Splits:         splits,
		CreatedAt:      now,
		LastModifiedAt: now,
		LastModifiedBy: creator,
		Version:        1,
	}

	if err := s.entries.StoreEntry(entry, s.historyRow(entry, domain.ChangeCreated, cmd.CreatorID)); err != nil {
		return domain.TabEntry{}, fmt.Errorf("storing tab entry: %w", err)
	}
	return entry, nil
}

// Update replaces the mutable fields of an existing entry and bumps its
// version. Updating a soft-deleted entry is rejected like a missing one.
func (s *TabEntryService) Update(ctx context.Context, cmd domain.TabEntryCommand) (domain.TabEntry, error) {
	if cmd.ID == nil {
		return domain.TabEntry{}, apperrors.ErrMissingEntryID
	}

	entry, err := s.entries.FindEntry(*cmd.ID)
	if err != nil {
		return domain.TabEntry{}, err
	}
	if entry.IsDeleted() {
		return domain.TabEntry{}, apperrors.ErrTabEntryNotFound
	}

	modifier, err := s.groups.FindParticipant(cmd.CreatorID)
	if err != nil {
		return domain.TabEntry{}, err
	}
	paidBy, err := s.groups.FindParticipant(cmd.PaidByUserID)
	if err != nil {
		return domain.TabEntry{}, err
	}
	splits, err := s.resolveSplits(cmd.Splits)
	if err != nil {
		return domain.TabEntry{}, err
	}

	entry.PaidBy = paidBy
	entry.Title = cmd.Title
	entry.Description = cmd.Description
	entry.Amount = cmd.Amount
	entry.Currency = cmd.Currency
	entry.Splits = splits
	entry.LastModifiedAt = s.now().UTC()
	entry.LastModifiedBy = modifier
	entry.Version++

	if err := s.entries.StoreEntry(entry, s.historyRow(entry, domain.ChangeUpdated, cmd.CreatorID)); err != nil {
		return domain.TabEntry{}, fmt.Errorf("updating tab entry: %w", err)
	}
	return entry, nil
}

// Delete soft-deletes an entry, then publishes TabEntryDeleted once the
// write is durable so live members see the deletion.
func (s *TabEntryService) Delete(ctx context.Context, entryID, deletedByUserID uuid.UUID) error {
	entry, err := s.entries.FindEntry(entryID)
	if err != nil {
		return err
	}
	if entry.IsDeleted() {
		return apperrors.ErrTabEntryNotFound
	}

	deletedBy, err := s.groups.FindParticipant(deletedByUserID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	entry.DeletedAt = lo.ToPtr(now)
	entry.DeletedBy = lo.ToPtr(deletedBy)
	entry.LastModifiedAt = now
	entry.LastModifiedBy = deletedBy
	entry.Version++

	if err := s.entries.StoreEntry(entry, s.historyRow(entry, domain.ChangeDeleted, deletedByUserID)); err != nil {
		return fmt.Errorf("deleting tab entry: %w", err)
	}

	// After commit only: the write above is durable at this point.
	s.bus.Publish(event.TabEntryDeleted{GroupID: entry.GroupID, TabEntryID: entry.ID})
	return nil
}

func (s *TabEntryService) resolveSplits(splits []domain.SplitCommand) ([]domain.TabEntrySplit, error) {
	resolved := make([]domain.TabEntrySplit, 0, len(splits))
	for _, split := range splits {
		participant, err := s.groups.FindParticipant(split.ParticipantID)
		if err != nil {
			return nil, err
		}
		splitID := uuid.New()
		if split.ID != nil {
			splitID = *split.ID
		}
		resolved = append(resolved, domain.TabEntrySplit{
			ID:             splitID,
			ParticipantID:  split.ParticipantID,
			Participant:    lo.ToPtr(participant),
			Split:          split.Split,
			ResolvedAmount: split.ResolvedAmount,
		})
	}
	return resolved, nil
}

func (s *TabEntryService) historyRow(entry domain.TabEntry, change domain.ChangeType, changedBy uuid.UUID) domain.TabEntryHistory {
	return domain.TabEntryHistory{
		ID:         uuid.New(),
		TabEntryID: entry.ID,
		GroupID:    entry.GroupID,
		ChangeType: change,
		ChangedBy:  changedBy,
		ChangedAt:  s.now().UTC(),
		Version:    entry.Version,
	}
}
