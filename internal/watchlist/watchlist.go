package watchlist

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/models"
	"primerjalnik/server/internal/store"
)

// ErrAlreadyPresent signals that the vehicle was saved before. The list is
// left untouched.
var ErrAlreadyPresent = apperrors.New(apperrors.ErrValidation, "vehicle is already on the watchlist")

// Store keeps one saved-vehicle list per user identity. Entries are full
// vehicle snapshots, not references, so a listing that disappears from the
// catalog stays viewable. The storage key is a deterministic function of the
// identity, which makes the lists of different identities disjoint.
type Store struct {
	local  *store.Local
	logger *logrus.Logger
}

func NewStore(local *store.Local, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Store{local: local, logger: logger}
}

func key(userID string) string {
	return fmt.Sprintf("watchlist-%s", userID)
}

// Load returns the persisted list for the identity, or an empty list when
// nothing was saved yet.
func (s *Store) Load(userID string) ([]models.Vehicle, error) {
	if userID == "" {
		return []models.Vehicle{}, nil
	}

	var list []models.Vehicle
	ok, err := s.local.GetJSON(key(userID), &list)
	if err != nil {
		return nil, err
	}
	if !ok || list == nil {
		return []models.Vehicle{}, nil
	}
	return list, nil
}

// Add appends the vehicle to the identity's list. Adding a vehicle whose
// identifier is already present returns ErrAlreadyPresent without
// duplicating it.
func (s *Store) Add(userID string, vehicle models.Vehicle) error {
	list, err := s.Load(userID)
	if err != nil {
		return err
	}

	for _, existing := range list {
		if existing.ID == vehicle.ID {
			return ErrAlreadyPresent
		}
	}

	list = append(list, vehicle)
	if err := s.local.SetJSON(key(userID), list); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"vehicle_id": vehicle.ID,
		"size":       len(list),
	}).Debug("Added vehicle to watchlist")
	return nil
}

// Remove deletes the entry with the given identifier. Removing an absent
// identifier is a no-op, not an error.
func (s *Store) Remove(userID, vehicleID string) error {
	list, err := s.Load(userID)
	if err != nil {
		return err
	}

	updated := make([]models.Vehicle, 0, len(list))
	for _, item := range list {
		if item.ID != vehicleID {
			updated = append(updated, item)
		}
	}
	if len(updated) == len(list) {
		return nil
	}

	return s.local.SetJSON(key(userID), updated)
}
