package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "tab-live/errors"

	"tab-live/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IGroupRepository interface {
	StoreGroup(group domain.Group) error
	FindGroup(groupID uuid.UUID) (domain.Group, error)
	DeleteGroup(groupID uuid.UUID) error
	AddMember(groupID, userID uuid.UUID) error
	RemoveMember(groupID, userID uuid.UUID) error
	ListMembers(groupID uuid.UUID) ([]uuid.UUID, error)
	ListGroupsForUser(userID uuid.UUID) ([]uuid.UUID, error)
	StoreParticipant(p domain.GroupParticipant) error
	FindParticipant(userID uuid.UUID) (domain.GroupParticipant, error)
}

// GroupRepository persists groups, membership edges and participant
// projections in BadgerDB.
//
// Key layout:
//
//	group:{group_id}              -> Group (JSON)
//	member:{group_id}:{user_id}   -> empty (membership edge)
//	usergroup:{user_id}:{group_id} -> empty (reverse edge, prefix-scanned
//	                                 to answer ListGroupsForUser)
//	participant:{user_id}         -> GroupParticipant (JSON)
//
// Both directions of the membership edge are written in one transaction
// so a prefix scan never observes half an edge.
type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) GroupRepository {
	return GroupRepository{db: db, log: log}
}

func groupKey(groupID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("group:%s", groupID))
}

func memberKey(groupID, userID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", groupID, userID))
}

func userGroupKey(userID, groupID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("usergroup:%s:%s", userID, groupID))
}

func participantKey(userID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("participant:%s", userID))
}

func (r GroupRepository) StoreGroup(group domain.Group) error {
	bytes, err := json.Marshal(group)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.ID), bytes)
	})
}

func (r GroupRepository) FindGroup(groupID uuid.UUID) (domain.Group, error) {
	var group domain.Group
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &group)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Group{}, apperrors.ErrGroupNotFound
	}
	return group, err
}

// DeleteGroup removes the group record and every membership edge in one
// transaction.
func (r GroupRepository) DeleteGroup(groupID uuid.UUID) error {
	members, err := r.ListMembers(groupID)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(groupKey(groupID)); err != nil {
			return err
		}
		for _, userID := range members {
			if err := txn.Delete(memberKey(groupID, userID)); err != nil {
				return err
			}
			if err := txn.Delete(userGroupKey(userID, groupID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r GroupRepository) AddMember(groupID, userID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(memberKey(groupID, userID), nil); err != nil {
			return err
		}
		return txn.Set(userGroupKey(userID, groupID), nil)
	})
}

func (r GroupRepository) RemoveMember(groupID, userID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(memberKey(groupID, userID)); err != nil {
			return err
		}
		return txn.Delete(userGroupKey(userID, groupID))
	})
}

func (r GroupRepository) ListMembers(groupID uuid.UUID) ([]uuid.UUID, error) {
	prefix := []byte(fmt.Sprintf("member:%s:", groupID))
	return r.scanSuffixes(prefix)
}

func (r GroupRepository) ListGroupsForUser(userID uuid.UUID) ([]uuid.UUID, error) {
	prefix := []byte(fmt.Sprintf("usergroup:%s:", userID))
	return r.scanSuffixes(prefix)
}

// scanSuffixes collects the trailing uuid of every key under the prefix.
func (r GroupRepository) scanSuffixes(prefix []byte) ([]uuid.UUID, error) {
	var ids []uuid.UUID
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
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (r GroupRepository) StoreParticipant(p domain.GroupParticipant) error {
	bytes, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(participantKey(p.UserID), bytes)
	})
}

func (r GroupRepository) FindParticipant(userID uuid.UUID) (domain.GroupParticipant, error) {
	var participant domain.GroupParticipant
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(participantKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &participant)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.GroupParticipant{}, fmt.Errorf("%w: %s", apperrors.ErrParticipantNotFound, userID)
	}
	return participant, err
}
