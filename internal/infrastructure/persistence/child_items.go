package persistence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// syncItems makes the stored child rows of a parent match items: rows whose
// ID is not in ids are deleted, the rest are upserted.
func syncItems[T any](tx *gorm.DB, parentColumn string, parentID uuid.UUID, ids []uuid.UUID, items []T) error {
	del := tx.Where(parentColumn+" = ?", parentID)
	if len(ids) > 0 {
		del = del.Where("id NOT IN ?", ids)
	}
	if err := del.Delete(new(T)).Error; err != nil {
		return err
	}
	for i := range items {
		if err := tx.Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
