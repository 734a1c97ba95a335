package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/denylist"
	"github.com/Skotchmaster/session_guard/internal/fingerprint"
	"github.com/Skotchmaster/session_guard/internal/models"
	"github.com/Skotchmaster/session_guard/internal/repo"
	"github.com/Skotchmaster/session_guard/internal/tokens"
)

type testEnv struct {
	DB      *gorm.DB
	Repo    *repo.GormRepo
	Issuer  *IssuerService
	Rotator *RotationService
	Revoker *RevocationService
	Trust   *TrustService
	Events  *EventService
	Deny    *denylist.Memory
	Hasher  *fingerprint.Hasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	// a single connection keeps every goroutine on the same :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Principal{},
		&models.RefreshToken{},
		&models.DeviceTrust{},
		&models.SecurityAlert{},
		&models.LoginEvent{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	gormRepo := &repo.GormRepo{DB: db}
	hasher := fingerprint.NewHasher([]byte("test-fingerprint-secret"))
	deny := denylist.NewMemory()
	t.Cleanup(deny.Close)

	events := &EventService{Repo: gormRepo, Hasher: hasher}

	issuer := &IssuerService{
		Repo:          gormRepo,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Hasher:        hasher,
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    15 * 24 * time.Hour,
	}
	rotator := &RotationService{
		Repo:          gormRepo,
		Issuer:        issuer,
		Events:        events,
		RefreshSecret: issuer.RefreshSecret,
		Grace:         10 * time.Second,
	}
	revoker := &RevocationService{
		Repo:          gormRepo,
		Deny:          deny,
		JWTSecret:     issuer.JWTSecret,
		RefreshSecret: issuer.RefreshSecret,
	}

	return &testEnv{
		DB:      db,
		Repo:    gormRepo,
		Issuer:  issuer,
		Rotator: rotator,
		Revoker: revoker,
		Trust:   &TrustService{Repo: gormRepo, Hasher: hasher},
		Events:  events,
		Deny:    deny,
		Hasher:  hasher,
	}
}

func (env *testEnv) newIdentity() IssueInput {
	return IssueInput{
		PrincipalID: uuid.New(),
		Email:       "user@example.com",
		Name:        "Test User",
		Descriptor:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0",
		Origin:      "203.0.113.10",
	}
}

func (env *testEnv) familyRecords(t *testing.T, familyID string) []models.RefreshToken {
	t.Helper()
	var recs []models.RefreshToken
	if err := env.DB.Where("family_id = ?", familyID).Order("id").Find(&recs).Error; err != nil {
		t.Fatalf("family query failed: %v", err)
	}
	return recs
}

func (env *testEnv) recordForToken(t *testing.T, raw string) *models.RefreshToken {
	t.Helper()
	rec, err := env.Repo.FindRefreshByHash(tokens.Sha256Hex(raw))
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	return rec
}
