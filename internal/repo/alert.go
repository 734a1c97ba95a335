package repo

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/session_guard/internal/models"
)

func (r *GormRepo) CreateAlert(principalID uuid.UUID, category, message, metadata string) (*models.SecurityAlert, error) {
	alert := models.SecurityAlert{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Category:    category,
		Message:     message,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
	if err := r.DB.Create(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *GormRepo) ListAlerts(principalID uuid.UUID) ([]models.SecurityAlert, error) {
	var alerts []models.SecurityAlert
	err := r.DB.Where("principal_id = ? AND dismissed = ?", principalID, false).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

func (r *GormRepo) MarkAlertRead(principalID, alertID uuid.UUID) error {
	return r.DB.Model(&models.SecurityAlert{}).
		Where("id = ? AND principal_id = ?", alertID, principalID).
		Update("read", true).Error
}

func (r *GormRepo) DismissAlert(principalID, alertID uuid.UUID) error {
	return r.DB.Model(&models.SecurityAlert{}).
		Where("id = ? AND principal_id = ?", alertID, principalID).
		Update("dismissed", true).Error
}
