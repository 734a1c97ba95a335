package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/autherr"
	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/models"
	"github.com/Skotchmaster/session_guard/internal/repo"
	"github.com/Skotchmaster/session_guard/internal/tokens"
)

// RotationService advances refresh-token chains and is the single place that
// decides between a legitimate rotation, a benign concurrent duplicate and a
// stolen token.
type RotationService struct {
	Repo          *repo.GormRepo
	Issuer        *IssuerService
	Events        *EventService
	RefreshSecret []byte
	Grace         time.Duration
}

type RotateInput struct {
	RawToken    string
	Descriptor  string
	Origin      string
	Fingerprint string
}

func (s *RotationService) Rotate(ctx context.Context, in RotateInput) (*Pair, error) {
	l := logging.FromContext(ctx).With("svc", "rotation.rotate")
	now := time.Now()

	// signature and typ gate only; the stored record is authoritative below
	if _, err := tokens.RefreshClaimsFromToken(in.RawToken, s.RefreshSecret); err != nil {
		return nil, autherr.ErrInvalidCredential
	}

	rec, err := s.Repo.FindRefreshByHash(tokens.Sha256Hex(in.RawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrInvalidCredential
		}
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}

	if rec.Expired(now) {
		return nil, autherr.ErrExpiredCredential
	}

	principal, err := s.Repo.FindPrincipal(rec.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("principal lookup: %w", err)
	}

	// global revocation wins over everything below
	if rec.Epoch < principal.Epoch {
		if err := s.Repo.RevokeByJTI(rec.JTI); err != nil {
			l.Error("epoch_revoke_failed", "error", err)
		}
		return nil, autherr.ErrSessionInvalidated
	}

	if rec.Revoked || rec.Rotated() {
		return s.resolveReuse(ctx, principal, rec, now)
	}

	reqFP := in.Fingerprint
	if reqFP == "" && in.Descriptor != "" {
		reqFP = s.Issuer.Hasher.Fingerprint(in.Descriptor)
	}
	if rec.Fingerprint != "" && reqFP != rec.Fingerprint {
		s.burnFamily(ctx, principal, rec, autherr.ErrDeviceMismatch)
		return nil, autherr.ErrDeviceMismatch
	}

	pair, successor, err := s.Issuer.buildSuccessor(principal, rec)
	if err != nil {
		return nil, fmt.Errorf("sign successor: %w", err)
	}

	claimed, err := s.Repo.ClaimRotation(rec.JTI, successor, pair.RefreshToken, now)
	if err != nil {
		return nil, fmt.Errorf("claim rotation: %w", err)
	}
	if !claimed {
		// lost a race with a concurrent rotation of the same token
		fresh, err := s.Repo.FindRefreshByJTI(rec.JTI)
		if err != nil {
			return nil, fmt.Errorf("re-read after lost claim: %w", err)
		}
		return s.resolveReuse(ctx, principal, fresh, now)
	}

	return pair, nil
}

// resolveReuse handles a token presented after it was already rotated or
// revoked: either the grace window absorbs it as a duplicate, or the family
// burns.
func (s *RotationService) resolveReuse(ctx context.Context, principal *models.Principal, rec *models.RefreshToken, now time.Time) (*Pair, error) {
	if !rec.Revoked && rec.RotatedAt != nil && now.Sub(*rec.RotatedAt) <= s.Grace && rec.SuccessorJTI != "" {
		successor, err := s.Repo.FindRefreshByJTI(rec.SuccessorJTI)
		if err == nil && !successor.Revoked && !successor.Expired(now) && rec.SuccessorToken != "" {
			access, accessExp, err := s.Issuer.FreshAccess(principal)
			if err != nil {
				return nil, fmt.Errorf("sign access: %w", err)
			}
			return &Pair{
				AccessToken:  access,
				RefreshToken: rec.SuccessorToken,
				AccessExp:    accessExp,
				RefreshExp:   successor.ExpiresAt,
			}, nil
		}
	}

	s.burnFamily(ctx, principal, rec, autherr.ErrTokenReuseDetected)
	return nil, autherr.ErrTokenReuseDetected
}

// burnFamily revokes the whole chain and raises the matching alert. The
// revocation must land even though the request is about to fail; the alert is
// advisory.
func (s *RotationService) burnFamily(ctx context.Context, principal *models.Principal, rec *models.RefreshToken, kind error) {
	l := logging.FromContext(ctx).With("svc", "rotation.burn_family")
	if err := s.Repo.RevokeFamily(rec.FamilyID); err != nil {
		l.Error("family_revoke_failed", "error", err)
	}
	if s.Events == nil {
		return
	}
	switch {
	case errors.Is(kind, autherr.ErrDeviceMismatch):
		l.Warn("device_mismatch", "principal", principal.ID)
		s.Events.Alert(ctx, principal.ID, AlertDeviceMismatch,
			"A session token was presented from an unrecognized device and the session was terminated", rec.Origin)
	default:
		l.Warn("token_reuse_detected", "principal", principal.ID)
		s.Events.Alert(ctx, principal.ID, AlertPossibleReuse,
			"A previously used session token was presented again; all related sessions were terminated", rec.Origin)
	}
}
