// Package tenancy manages companies and user invitations. All domain data in the
// application is scoped by company id; companies are soft-deactivated, never
// hard-deleted.
package tenancy

import (
	"encoding/json"
	"time"
)

// SubscriptionTier enumerates supported plans.
type SubscriptionTier string

const (
	TierDemo       SubscriptionTier = "demo"
	TierStandard   SubscriptionTier = "standard"
	TierEnterprise SubscriptionTier = "enterprise"
)

// Company is the tenant root.
type Company struct {
	ID           int64            `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	Tier         SubscriptionTier `json:"tier"`
	MaxUsers     int              `json:"max_users"`
	MaxStorageMB int              `json:"max_storage_mb"`
	Settings     json.RawMessage  `json:"settings"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Invitation lets an admin bring a user into a company. Tokens expire after
// seven days; expired invitations are excluded from reads and purged by a job.
type Invitation struct {
	ID         int64      `json:"id"`
	CompanyID  int64      `json:"company_id"`
	Token      string     `json:"token"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// InvitationTTL is the fixed validity window for invitation tokens.
const InvitationTTL = 7 * 24 * time.Hour
