package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/session_guard/internal/fingerprint"
	"github.com/Skotchmaster/session_guard/internal/models"
	"github.com/Skotchmaster/session_guard/internal/repo"
)

// TrustService is the device trust registry. Presence of an entry means the
// device is trusted; there is no pending state and no silent promotion.
type TrustService struct {
	Repo   *repo.GormRepo
	Hasher *fingerprint.Hasher
}

func (s *TrustService) TrustDevice(ctx context.Context, principalID uuid.UUID, descriptor, origin string) (string, error) {
	fp := s.Hasher.Fingerprint(descriptor)
	if err := s.Repo.UpsertTrust(principalID, fp, descriptor, origin, time.Now()); err != nil {
		return "", err
	}
	return fp, nil
}

func (s *TrustService) TrustFingerprint(ctx context.Context, principalID uuid.UUID, fp, descriptor, origin string) error {
	return s.Repo.UpsertTrust(principalID, fp, descriptor, origin, time.Now())
}

func (s *TrustService) IsTrusted(ctx context.Context, principalID uuid.UUID, fp string) (bool, error) {
	return s.Repo.IsTrusted(principalID, fp)
}

func (s *TrustService) Remove(ctx context.Context, principalID uuid.UUID, fp string) error {
	return s.Repo.RemoveTrust(principalID, fp)
}

func (s *TrustService) List(ctx context.Context, principalID uuid.UUID) ([]models.DeviceTrust, error) {
	return s.Repo.ListTrusted(principalID)
}
