package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/models"
)

func (r *GormRepo) CreateRefresh(rec *models.RefreshToken) error {
	return r.DB.Create(rec).Error
}

func (r *GormRepo) FindRefreshByHash(hash string) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	if err := r.DB.Where("token_hash = ?", hash).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepo) FindRefreshByJTI(jti string) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	if err := r.DB.Where("jti = ?", jti).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClaimRotation marks the old record rotated, wires in its successor and
// persists the successor record, all in one transaction — but only if nobody
// else got there first. Exactly one of two concurrent callers sees
// claimed=true; the other re-reads the old record and takes the grace path.
// Rotated is not revoked: the flag stays false so the grace window can
// recognize a benign duplicate.
func (r *GormRepo) ClaimRotation(oldJTI string, successor *models.RefreshToken, successorRaw string, now time.Time) (bool, error) {
	claimed := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ? AND rotated_at IS NULL", oldJTI, false).
			Updates(map[string]interface{}{
				"rotated_at":      now,
				"successor_jti":   successor.JTI,
				"successor_token": successorRaw,
				"last_used_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		if err := tx.Create(successor).Error; err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

func (r *GormRepo) RevokeByJTI(jti string) error {
	return r.DB.Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Update("revoked", true).Error
}

func (r *GormRepo) RevokeFamily(familyID string) error {
	return r.DB.Model(&models.RefreshToken{}).
		Where("family_id = ? AND revoked = ?", familyID, false).
		Update("revoked", true).Error
}

// FamiliesForDevice lists every rotation family bound to a fingerprint, so a
// single-device logout can burn the whole chain the device started.
func (r *GormRepo) FamiliesForDevice(principalID uuid.UUID, fingerprint string) ([]string, error) {
	var families []string
	err := r.DB.Model(&models.RefreshToken{}).
		Distinct("family_id").
		Where("principal_id = ? AND fingerprint = ?", principalID, fingerprint).
		Pluck("family_id", &families).Error
	return families, err
}

func (r *GormRepo) RevokeFamilies(families []string) error {
	if len(families) == 0 {
		return nil
	}
	return r.DB.Model(&models.RefreshToken{}).
		Where("family_id IN ? AND revoked = ?", families, false).
		Update("revoked", true).Error
}

func (r *GormRepo) TouchRefreshLastUsed(jti string, now time.Time) error {
	return r.DB.Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Update("last_used_at", now).Error
}

// DeleteExpiredRefresh drops records past retention; called by operators, not
// by the protocol itself.
func (r *GormRepo) DeleteExpiredRefresh(before time.Time) (int64, error) {
	res := r.DB.Where("expires_at < ?", before).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
