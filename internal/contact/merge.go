// Package contact implements contact deduplication: merging secondary
// contacts into a primary one.
package contact

import (
	"fmt"

	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"gorm.io/gorm"
)

// referencingModels are the entities whose contact_id foreign keys are
// re-pointed from a merged secondary to the primary.
var referencingModels = []interface{}{
	&model.Deal{},
	&model.Appointment{},
	&model.CallLog{},
	&model.SMSMessage{},
	&model.Review{},
	&model.Order{},
	&model.FormSubmission{},
	&model.Conversation{},
}

// Merge folds the secondary contacts into the primary: tags are unioned,
// custom fields shallow-merged with secondary values winning on key
// collision, every foreign-key reference re-pointed, a history record
// appended per secondary, and the secondaries deleted. All of it runs in
// one transaction so a partial merge is never observable.
func Merge(db *gorm.DB, clientID, primaryID uint, secondaryIDs []uint, actorID uint) (*model.Contact, error) {
	var primary model.Contact

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := store.FindOwned(tx, &primary, primaryID, clientID); err != nil {
			return err
		}

		for _, secondaryID := range secondaryIDs {
			if secondaryID == primaryID {
				return fmt.Errorf("contact %d cannot be merged into itself", primaryID)
			}

			var secondary model.Contact
			if err := store.FindOwned(tx, &secondary, secondaryID, clientID); err != nil {
				return err
			}

			primary.Tags = unionTags(primary.Tags, secondary.Tags)
			primary.CustomFields = mergeCustomFields(primary.CustomFields, secondary.CustomFields)

			for _, m := range referencingModels {
				if err := tx.Model(m).
					Where("client_id = ? AND contact_id = ?", clientID, secondaryID).
					Update("contact_id", primaryID).Error; err != nil {
					return err
				}
			}

			history := model.ContactHistory{
				ClientID:  clientID,
				ContactID: primaryID,
				Action:    "merge",
				Detail:    fmt.Sprintf("merged contact %d (%s) into %d", secondary.ID, secondary.Email, primaryID),
				ActorID:   actorID,
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}

			if err := tx.Delete(&secondary).Error; err != nil {
				return err
			}
		}

		return tx.Save(&primary).Error
	})
	if err != nil {
		return nil, err
	}

	return &primary, nil
}

// unionTags appends the tags of b missing from a, preserving order.
func unionTags(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	merged := make([]string, 0, len(a)+len(b))
	for _, tag := range a {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	for _, tag := range b {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}

// mergeCustomFields shallow-merges b into a; b's values win on collision.
func mergeCustomFields(a, b map[string]interface{}) map[string]interface{} {
	if a == nil && b == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	return merged
}
