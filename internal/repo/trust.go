package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/models"
)

func (r *GormRepo) UpsertTrust(principalID uuid.UUID, fingerprint, descriptor, origin string, now time.Time) error {
	var entry models.DeviceTrust
	err := r.DB.Where("principal_id = ? AND fingerprint = ?", principalID, fingerprint).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.DeviceTrust{
			PrincipalID: principalID,
			Fingerprint: fingerprint,
			Descriptor:  descriptor,
			LastOrigin:  origin,
			LastUsedAt:  now,
			CreatedAt:   now,
		}
		return r.DB.Create(&entry).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"last_used_at": now}
	if descriptor != "" {
		updates["descriptor"] = descriptor
	}
	if origin != "" {
		updates["last_origin"] = origin
	}
	return r.DB.Model(&entry).Updates(updates).Error
}

func (r *GormRepo) IsTrusted(principalID uuid.UUID, fingerprint string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.DeviceTrust{}).
		Where("principal_id = ? AND fingerprint = ?", principalID, fingerprint).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRepo) TouchTrust(principalID uuid.UUID, fingerprint, origin string, now time.Time) error {
	updates := map[string]interface{}{"last_used_at": now}
	if origin != "" {
		updates["last_origin"] = origin
	}
	return r.DB.Model(&models.DeviceTrust{}).
		Where("principal_id = ? AND fingerprint = ?", principalID, fingerprint).
		Updates(updates).Error
}

func (r *GormRepo) RemoveTrust(principalID uuid.UUID, fingerprint string) error {
	return r.DB.Where("principal_id = ? AND fingerprint = ?", principalID, fingerprint).
		Delete(&models.DeviceTrust{}).Error
}

func (r *GormRepo) ListTrusted(principalID uuid.UUID) ([]models.DeviceTrust, error) {
	var entries []models.DeviceTrust
	err := r.DB.Where("principal_id = ?", principalID).
		Order("last_used_at DESC").
		Find(&entries).Error
	return entries, err
}
