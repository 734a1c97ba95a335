package repo

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/session_guard/internal/models"
)

func (r *GormRepo) CreateLoginEvent(event *models.LoginEvent) error {
	return r.DB.Create(event).Error
}

func (r *GormRepo) HasEventForFingerprint(principalID uuid.UUID, fingerprint string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.LoginEvent{}).
		Where("principal_id = ? AND fingerprint = ?", principalID, fingerprint).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRepo) HasEventForOrigin(principalID uuid.UUID, origin string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.LoginEvent{}).
		Where("principal_id = ? AND origin = ?", principalID, origin).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRepo) ListLoginEvents(principalID uuid.UUID, offset, limit int) ([]models.LoginEvent, error) {
	var events []models.LoginEvent
	err := r.DB.Where("principal_id = ?", principalID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	return events, err
}
