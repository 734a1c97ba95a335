package models

import (
	"time"

	"github.com/google/uuid"
)

type Principal struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Email string    `gorm:"uniqueIndex;not null"  json:"email"`
	Name  string    `gorm:"not null"              json:"name"`
	// Epoch invalidates every refresh token issued before the current value.
	Epoch     int       `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID          uint      `gorm:"primaryKey"           json:"id"`
	JTI         string    `gorm:"uniqueIndex;not null" json:"-"`
	TokenHash   string    `gorm:"uniqueIndex;not null" json:"-"`
	PrincipalID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	// FamilyID is fixed at login and inherited by every rotation descendant.
	FamilyID       string     `gorm:"index;not null"  json:"-"`
	Epoch          int        `gorm:"not null"        json:"-"`
	Fingerprint    string     `gorm:"index"           json:"-"`
	Descriptor     string     `gorm:"size:512"        json:"-"`
	Origin         string     `gorm:"size:64"         json:"-"`
	IssuedAt       time.Time  `gorm:"not null"        json:"-"`
	ExpiresAt      time.Time  `gorm:"index;not null"  json:"-"`
	Revoked        bool       `gorm:"default:false"   json:"-"`
	RotatedAt      *time.Time `gorm:"index"           json:"-"`
	SuccessorJTI   string     `json:"-"`
	SuccessorToken string     `gorm:"size:1024"       json:"-"`
	LastUsedAt     *time.Time `json:"-"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *RefreshToken) Rotated() bool {
	return t.RotatedAt != nil || t.SuccessorJTI != ""
}

type DeviceTrust struct {
	ID          uint      `gorm:"primaryKey"                                         json:"id"`
	PrincipalID uuid.UUID `gorm:"type:uuid;index:idx_trust_owner_fp,unique;not null" json:"-"`
	Fingerprint string    `gorm:"index:idx_trust_owner_fp,unique;not null"           json:"fingerprint"`
	Descriptor  string    `gorm:"size:512"                                           json:"descriptor"`
	LastOrigin  string    `gorm:"size:64"                                            json:"last_origin"`
	LastUsedAt  time.Time `gorm:"index;not null"                                     json:"last_used_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type SecurityAlert struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	PrincipalID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Category    string    `gorm:"size:32;not null"         json:"category"`
	Message     string    `gorm:"size:512;not null"        json:"message"`
	Metadata    string    `gorm:"size:1024"                json:"metadata,omitempty"`
	Read        bool      `gorm:"default:false"            json:"read"`
	Dismissed   bool      `gorm:"default:false"            json:"dismissed"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginEvent rows are append-only; nothing updates them after creation.
type LoginEvent struct {
	ID          uint      `gorm:"primaryKey"               json:"id"`
	PrincipalID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Origin      string    `gorm:"size:64;index"            json:"origin"`
	Descriptor  string    `gorm:"size:512"                 json:"descriptor"`
	Fingerprint string    `gorm:"size:64;index"            json:"-"`
	Browser     string    `gorm:"size:64"                  json:"browser"`
	OS          string    `gorm:"size:64"                  json:"os"`
	Trusted     bool      `json:"trusted"`
	EventType   string    `gorm:"size:32;not null"         json:"event_type"`
	CreatedAt   time.Time `json:"created_at"`
}
