package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"tab-live/domain"
	apperrors "tab-live/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type ITabEntryRepository interface {
	StoreEntry(entry domain.TabEntry, history domain.TabEntryHistory) error
	FindEntry(entryID uuid.UUID) (domain.TabEntry, error)
	ListEntries(groupID uuid.UUID) ([]domain.TabEntry, error)
	ListHistory(entryID uuid.UUID) ([]domain.TabEntryHistory, error)
}

// TabEntryRepository persists ledger entries and their audit trail in
// BadgerDB.
//
// Key layout:
//
//	entry:{entry_id}                          -> TabEntry (JSON)
//	groupentry:{group_id}:{entry_id}          -> empty (per-group index)
//	history:{entry_id}:{ts_padded}:{history_id} -> TabEntryHistory (JSON)
//
// The history timestamp uses 19-digit zero padding so a plain prefix
// scan returns rows in chronological order; the trailing uuid keeps two
// rows written in the same nanosecond from colliding.
type TabEntryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTabEntryRepository(db *badger.DB, log *slog.Logger) TabEntryRepository {
	return TabEntryRepository{db: db, log: log}
}

func entryKey(entryID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("entry:%s", entryID))
}

func groupEntryKey(groupID, entryID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("groupentry:%s:%s", groupID, entryID))
}

func historyKey(h domain.TabEntryHistory) []byte {
	return []byte(fmt.Sprintf("history:%s:%019d:%s", h.TabEntryID, h.ChangedAt.UnixNano(), h.ID))
}

// StoreEntry writes the entry and its history row in one transaction:
// an entry mutation without its audit trail must never become visible.
func (r TabEntryRepository) StoreEntry(entry domain.TabEntry, history domain.TabEntryHistory) error {
	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	historyBytes, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(entry.ID), entryBytes); err != nil {
			return err
		}
		if err := txn.Set(groupEntryKey(entry.GroupID, entry.ID), nil); err != nil {
			return err
		}
		return txn.Set(historyKey(history), historyBytes)
	})
}

func (r TabEntryRepository) FindEntry(entryID uuid.UUID) (domain.TabEntry, error) {
	var entry domain.TabEntry
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(entryID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.TabEntry{}, apperrors.ErrTabEntryNotFound
	}
	return entry, err
}

func (r TabEntryRepository) ListEntries(groupID uuid.UUID) ([]domain.TabEntry, error) {
	prefix := []byte(fmt.Sprintf("groupentry:%s:", groupID))
	var entryIDs []uuid.UUID

	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			suffix := string(it.Item().Key()[len(prefix):])
			id, err := uuid.Parse(suffix)
			if err != nil {
				r.log.Warn("Skipping malformed key", "key", string(it.Item().Key()))
				continue
			}
			entryIDs = append(entryIDs, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TabEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		entry, err := r.FindEntry(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListHistory returns the audit rows for one entry in chronological
// order, courtesy of the padded timestamp in the key.
func (r TabEntryRepository) ListHistory(entryID uuid.UUID) ([]domain.TabEntryHistory, error) {
	prefix := []byte(fmt.Sprintf("history:%s:", entryID))
	var rows []domain.TabEntryHistory

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var row domain.TabEntryHistory
				if err := json.Unmarshal(val, &row); err != nil {
					return err
				}
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}
