package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/session_guard/internal/fingerprint"
	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/models"
	"github.com/Skotchmaster/session_guard/internal/repo"
	"github.com/Skotchmaster/session_guard/internal/tokens"
)

type IssuerService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Hasher        *fingerprint.Hasher
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type IssueInput struct {
	PrincipalID uuid.UUID
	Email       string
	Name        string
	Descriptor  string
	Origin      string
	Fingerprint string
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// IssuePair mints a fresh access+refresh pair rooted in a brand new rotation
// family. The caller hands over an already verified identity; this service
// never checks passwords or OAuth grants.
func (s *IssuerService) IssuePair(ctx context.Context, in IssueInput) (*Pair, error) {
	l := logging.FromContext(ctx).With("svc", "issuer.issue_pair")

	principal, err := s.Repo.EnsurePrincipal(in.PrincipalID, in.Email, in.Name)
	if err != nil {
		l.Error("principal_upsert_failed", "error", err)
		return nil, err
	}

	fp := in.Fingerprint
	if fp == "" && in.Descriptor != "" {
		fp = s.Hasher.Fingerprint(in.Descriptor)
	}

	pair, _, err := s.mint(ctx, principal, tokens.NewFamilyID(), principal.Epoch, fp, in.Descriptor, in.Origin)
	return pair, err
}

// mint is shared between fresh logins and rotation continuations: the only
// difference is whether the family id and epoch are inherited.
func (s *IssuerService) mint(ctx context.Context, principal *models.Principal, familyID string, epoch int, fp, descriptor, origin string) (*Pair, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	accessToken, err := tokens.SignAccessToken(principal.ID, principal.Email, principal.Name, accessExp, s.JWTSecret)
	if err != nil {
		return nil, nil, err
	}

	jti := tokens.NewJTI()
	refreshToken, err := tokens.SignRefreshToken(tokens.RefreshSpec{
		PrincipalID: principal.ID,
		Epoch:       epoch,
		FamilyID:    familyID,
		JTI:         jti,
		ExpiresAt:   refreshExp,
	}, s.RefreshSecret)
	if err != nil {
		return nil, nil, err
	}

	rec := &models.RefreshToken{
		JTI:         jti,
		TokenHash:   tokens.Sha256Hex(refreshToken),
		PrincipalID: principal.ID,
		FamilyID:    familyID,
		Epoch:       epoch,
		Fingerprint: fp,
		Descriptor:  descriptor,
		Origin:      origin,
		IssuedAt:    now,
		ExpiresAt:   refreshExp,
	}
	if err := s.Repo.CreateRefresh(rec); err != nil {
		return nil, nil, err
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, rec, nil
}

// buildSuccessor signs the next link of a family without persisting it; the
// rotation engine stores the record only after it wins the rotation claim.
func (s *IssuerService) buildSuccessor(principal *models.Principal, old *models.RefreshToken) (*Pair, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	accessToken, err := tokens.SignAccessToken(principal.ID, principal.Email, principal.Name, accessExp, s.JWTSecret)
	if err != nil {
		return nil, nil, err
	}

	jti := tokens.NewJTI()
	refreshToken, err := tokens.SignRefreshToken(tokens.RefreshSpec{
		PrincipalID: principal.ID,
		Epoch:       old.Epoch,
		FamilyID:    old.FamilyID,
		JTI:         jti,
		ExpiresAt:   refreshExp,
	}, s.RefreshSecret)
	if err != nil {
		return nil, nil, err
	}

	rec := &models.RefreshToken{
		JTI:         jti,
		TokenHash:   tokens.Sha256Hex(refreshToken),
		PrincipalID: principal.ID,
		FamilyID:    old.FamilyID,
		Epoch:       old.Epoch,
		Fingerprint: old.Fingerprint,
		Descriptor:  old.Descriptor,
		Origin:      old.Origin,
		IssuedAt:    now,
		ExpiresAt:   refreshExp,
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, rec, nil
}

// FreshAccess issues an access token alone, used by the grace path where the
// successor refresh token already exists.
func (s *IssuerService) FreshAccess(principal *models.Principal) (string, time.Time, error) {
	exp := time.Now().Add(s.AccessTTL)
	token, err := tokens.SignAccessToken(principal.ID, principal.Email, principal.Name, exp, s.JWTSecret)
	return token, exp, err
}
