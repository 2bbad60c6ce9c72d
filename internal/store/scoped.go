// Package store centralizes tenant-scoped data access. Every lookup
// filters by the caller's client id inside the query predicate itself, so
// a row belonging to another tenant is indistinguishable from a row that
// does not exist.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a row is missing or owned by another
// tenant. The two causes are deliberately not told apart.
var ErrNotFound = errors.New("record not found")

// IsNotFound reports whether err is a scoped-lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// FindOwned loads the row with the given id belonging to clientID into
// dest. The id and client id are checked in one query, never id first.
func FindOwned(db *gorm.DB, dest interface{}, id, clientID uint) error {
	result := db.Where("id = ? AND client_id = ?", id, clientID).First(dest)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return result.Error
	}
	return nil
}

// VerifyOwned checks that the row with the given id belongs to clientID
// without loading it. Used to re-verify every foreign entity referenced in
// a create/update payload before the relationship is established.
func VerifyOwned(db *gorm.DB, model interface{}, id, clientID uint) error {
	var count int64
	result := db.Model(model).Where("id = ? AND client_id = ?", id, clientID).Count(&count)
	if result.Error != nil {
		return result.Error
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOwned queries all rows of dest's type belonging to clientID,
// applying extra conditions through scope.
func ListOwned(db *gorm.DB, dest interface{}, clientID uint, scope func(*gorm.DB) *gorm.DB) error {
	query := db.Where("client_id = ?", clientID)
	if scope != nil {
		query = scope(query)
	}
	return query.Find(dest).Error
}

// DeleteOwned soft-deletes the row with the given id if it belongs to
// clientID. A cross-tenant id reports ErrNotFound.
func DeleteOwned(db *gorm.DB, model interface{}, id, clientID uint) error {
	result := db.Where("id = ? AND client_id = ?", id, clientID).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
