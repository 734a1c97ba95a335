package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/autherr"
	"github.com/Skotchmaster/session_guard/internal/denylist"
	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/repo"
	"github.com/Skotchmaster/session_guard/internal/tokens"
)

type RevocationService struct {
	Repo          *repo.GormRepo
	Deny          denylist.Denylist
	JWTSecret     []byte
	RefreshSecret []byte
}

// RevokeSingle flags exactly one record; the rest of its family stays alive.
func (s *RevocationService) RevokeSingle(ctx context.Context, rawRefresh string) error {
	rec, err := s.Repo.FindRefreshByHash(tokens.Sha256Hex(rawRefresh))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return autherr.ErrInvalidCredential
		}
		return fmt.Errorf("refresh lookup: %w", err)
	}
	return s.Repo.RevokeByJTI(rec.JTI)
}

// RevokeChain is single-device logout: the presented token identifies the
// chain and the whole chain dies with it.
func (s *RevocationService) RevokeChain(ctx context.Context, rawRefresh string) error {
	rec, err := s.Repo.FindRefreshByHash(tokens.Sha256Hex(rawRefresh))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return autherr.ErrInvalidCredential
		}
		return fmt.Errorf("refresh lookup: %w", err)
	}
	return s.Repo.RevokeFamily(rec.FamilyID)
}

func (s *RevocationService) RevokeFamily(ctx context.Context, familyID string) error {
	return s.Repo.RevokeFamily(familyID)
}

// RevokeDevice burns every rotation family a fingerprint ever started.
func (s *RevocationService) RevokeDevice(ctx context.Context, principalID uuid.UUID, fp string) error {
	families, err := s.Repo.FamiliesForDevice(principalID, fp)
	if err != nil {
		return fmt.Errorf("family lookup: %w", err)
	}
	return s.Repo.RevokeFamilies(families)
}

// RevokeAllForPrincipal bumps the epoch and bulk-revokes in one transaction.
// The epoch alone is sufficient; the bulk revoke guards against clock skew and
// stale caches.
func (s *RevocationService) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) (int, error) {
	l := logging.FromContext(ctx).With("svc", "revocation.revoke_all", "principal", principalID)
	epoch, err := s.Repo.BumpEpochAndRevokeAll(principalID)
	if err != nil {
		l.Error("revoke_all_failed", "error", err)
		return 0, err
	}
	l.Info("revoked_all_sessions", "new_epoch", epoch)
	return epoch, nil
}

// BlacklistAccess deny-lists an access token for its remaining lifetime.
// Expired or unparsable tokens need no entry.
func (s *RevocationService) BlacklistAccess(rawAccess string) {
	claims, err := tokens.AccessClaimsFromToken(rawAccess, s.JWTSecret)
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > 0 {
		s.Deny.Add(rawAccess, ttl)
	}
}
