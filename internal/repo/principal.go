package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/models"
)

// EnsurePrincipal records the verified identity handed over by the
// identity-proof step. Email/name follow whatever the proof reported last.
func (r *GormRepo) EnsurePrincipal(id uuid.UUID, email, name string) (*models.Principal, error) {
	var p models.Principal
	err := r.DB.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.Principal{ID: id, Email: email, Name: name, Epoch: 1, CreatedAt: time.Now()}
		if err := r.DB.Create(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Email != email || p.Name != name {
		if err := r.DB.Model(&p).Updates(map[string]interface{}{"email": email, "name": name}).Error; err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *GormRepo) FindPrincipal(id uuid.UUID) (*models.Principal, error) {
	var p models.Principal
	if err := r.DB.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// BumpEpochAndRevokeAll is the global kill switch: epoch++ plus bulk revoke in
// one transaction, so stale caches and clock skew cannot resurrect a session.
func (r *GormRepo) BumpEpochAndRevokeAll(id uuid.UUID) (int, error) {
	var newEpoch int
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Principal
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		newEpoch = p.Epoch + 1
		if err := tx.Model(&models.Principal{}).
			Where("id = ?", id).
			Update("epoch", newEpoch).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("principal_id = ? AND revoked = ?", id, false).
			Update("revoked", true).Error
	})
	return newEpoch, err
}
