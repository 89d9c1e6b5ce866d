package repositories

import (
	"log/slog"
	"testing"
	"time"

	"tab-live/domain"
	apperrors "tab-live/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testEntry(groupID uuid.UUID) domain.TabEntry {
	creator := domain.GroupParticipant{UserID: uuid.New(), Username: "alice", UserType: domain.UserRegistered}
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.TabEntry{
		ID:       uuid.New(),
		GroupID:  groupID,
		Creator:  creator,
		PaidBy:   creator,
		Title:    "Groceries",
		Amount:   decimal.RequireFromString("42.50"),
		Currency: "EUR",
		Splits: []domain.TabEntrySplit{{
			ID:             uuid.New(),
			ParticipantID:  creator.UserID,
			Split:          domain.Split{Type: domain.SplitEqual},
			ResolvedAmount: decimal.RequireFromString("42.50"),
		}},
		CreatedAt:      now,
		LastModifiedAt: now,
		LastModifiedBy: creator,
		Version:        1,
	}
}

func historyFor(entry domain.TabEntry, change domain.ChangeType, at time.Time) domain.TabEntryHistory {
	return domain.TabEntryHistory{
		ID:         uuid.New(),
		TabEntryID: entry.ID,
		GroupID:    entry.GroupID,
		ChangeType: change,
		ChangedBy:  entry.Creator.UserID,
		ChangedAt:  at,
		Version:    entry.Version,
	}
}

func Test_Store_And_Find_Entry(t *testing.T) {
	req := require.New(t)
	repository := NewTabEntryRepository(openTestDB(t), slog.Default())

	entry := testEntry(uuid.New())
	req.NoError(repository.StoreEntry(entry, historyFor(entry, domain.ChangeCreated, entry.CreatedAt)))

	fetched, err := repository.FindEntry(entry.ID)
	req.NoError(err)
	req.Equal(entry.ID, fetched.ID)
	req.Equal(entry.Title, fetched.Title)
	req.True(entry.Amount.Equal(fetched.Amount))
	req.Len(fetched.Splits, 1)
	req.True(entry.Splits[0].ResolvedAmount.Equal(fetched.Splits[0].ResolvedAmount))
}

func Test_Find_Unknown_Entry(t *testing.T) {
	req := require.New(t)
	repository := NewTabEntryRepository(openTestDB(t), slog.Default())

	_, err := repository.FindEntry(uuid.New())
	req.ErrorIs(err, apperrors.ErrTabEntryNotFound)
}

func Test_List_Entries_Is_Scoped_To_The_Group(t *testing.T) {
	req := require.New(t)
	repository := NewTabEntryRepository(openTestDB(t), slog.Default())

	groupID := uuid.New()
	first := testEntry(groupID)
	second := testEntry(groupID)
	foreign := testEntry(uuid.New())
	for _, entry := range []domain.TabEntry{first, second, foreign} {
		req.NoError(repository.StoreEntry(entry, historyFor(entry, domain.ChangeCreated, entry.CreatedAt)))
	}

	entries, err := repository.ListEntries(groupID)
	req.NoError(err)
	req.Len(entries, 2)
	ids := []uuid.UUID{entries[0].ID, entries[1].ID}
	req.ElementsMatch([]uuid.UUID{first.ID, second.ID}, ids)
}

func Test_History_Comes_Back_In_Chronological_Order(t *testing.T) {
	req := require.New(t)
	repository := NewTabEntryRepository(openTestDB(t), slog.Default())

	entry := testEntry(uuid.New())
	base := time.Now().UTC()

	req.NoError(repository.StoreEntry(entry, historyFor(entry, domain.ChangeCreated, base)))

	entry.Title = "Groceries and drinks"
	entry.Version = 2
	req.NoError(repository.StoreEntry(entry, historyFor(entry, domain.ChangeUpdated, base.Add(time.Minute))))

	entry.Version = 3
	req.NoError(repository.StoreEntry(entry, historyFor(entry, domain.ChangeDeleted, base.Add(2*time.Minute))))

	rows, err := repository.ListHistory(entry.ID)
	req.NoError(err)
	req.Len(rows, 3)
	req.Equal(domain.ChangeCreated, rows[0].ChangeType)
	req.Equal(domain.ChangeUpdated, rows[1].ChangeType)
	req.Equal(domain.ChangeDeleted, rows[2].ChangeType)
}
