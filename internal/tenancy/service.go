package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-bi/meridian/internal/auth"
	"github.com/meridian-bi/meridian/internal/shared"
)

// RepositoryPort defines data access methods for tenancy.
type RepositoryPort interface {
	CreateCompany(ctx context.Context, c Company) (*Company, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (*Company, error)
	UpdateCompany(ctx context.Context, c Company) (*Company, error)
	DeactivateCompany(ctx context.Context, id int64) error
	ListCompanies(ctx context.Context) ([]Company, error)
	CreateInvitation(ctx context.Context, inv Invitation) (*Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)
	ListInvitations(ctx context.Context, companyID int64) ([]Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id int64) error
	PurgeExpiredInvitations(ctx context.Context, before time.Time) (int64, error)
}

// Service handles tenancy business logic.
type Service struct {
	repo  RepositoryPort
	users auth.UserRepository
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, users auth.UserRepository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, users: users, audit: audit}
}

// SignupInput creates a company together with its first admin user.
type SignupInput struct {
	CompanyName   string
	Slug          string
	Tier          SubscriptionTier
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Signup provisions a tenant and its admin account.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*Company, error) {
	if strings.TrimSpace(input.CompanyName) == "" {
		return nil, errors.New("company name is required")
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = Slugify(input.CompanyName)
	}
	if !slugPattern.MatchString(slug) {
		return nil, errors.New("slug must be lowercase letters, digits and hyphens")
	}
	if input.AdminEmail == "" || input.AdminPassword == "" {
		return nil, errors.New("admin email and password are required")
	}
	tier := input.Tier
	if tier == "" {
		tier = TierDemo
	}

	company, err := s.repo.CreateCompany(ctx, Company{
		Slug:         slug,
		Name:         input.CompanyName,
		Tier:         tier,
		MaxUsers:     tierUserLimit(tier),
		MaxStorageMB: tierStorageLimit(tier),
		Settings:     json.RawMessage(`{}`),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.AdminPassword)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Create(ctx, auth.User{
		CompanyID:    company.ID,
		Email:        input.AdminEmail,
		Name:         input.AdminName,
		Role:         shared.RoleAdmin,
		PasswordHash: hash,
		IsActive:     true,
	}); err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: company.ID,
			Action:    "company.signup",
			Entity:    "company",
			EntityID:  slug,
		})
	}
	return company, nil
}

// GetCompany loads a company, enforcing tenant visibility.
func (s *Service) GetCompany(ctx context.Context, actor *shared.Identity, id int64) (*Company, error) {
	if err := checkCompanyAccess(actor, id); err != nil {
		return nil, err
	}
	return s.repo.GetCompany(ctx, id)
}

// GetCompanyBySlug resolves a tenant by its slug.
func (s *Service) GetCompanyBySlug(ctx context.Context, slug string) (*Company, error) {
	return s.repo.GetCompanyBySlug(ctx, slug)
}

// UpdateCompanyInput carries mutable company fields.
type UpdateCompanyInput struct {
	Name     string
	Tier     SubscriptionTier
	Settings json.RawMessage
}

// UpdateCompany applies changes for admins of the tenant.
func (s *Service) UpdateCompany(ctx context.Context, actor *shared.Identity, id int64, input UpdateCompanyInput) (*Company, error) {
	if err := checkCompanyAdmin(actor, id); err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		company.Name = input.Name
	}
	if input.Tier != "" {
		company.Tier = input.Tier
		company.MaxUsers = tierUserLimit(input.Tier)
		company.MaxStorageMB = tierStorageLimit(input.Tier)
	}
	if len(input.Settings) > 0 {
		company.Settings = input.Settings
	}
	return s.repo.UpdateCompany(ctx, *company)
}

// DeactivateCompany soft-deletes the tenant.
func (s *Service) DeactivateCompany(ctx context.Context, actor *shared.Identity, id int64) error {
	if err := checkCompanyAdmin(actor, id); err != nil {
		return err
	}
	if err := s.repo.DeactivateCompany(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: id,
			ActorID:   actor.UserID,
			Action:    "company.deactivate",
			Entity:    "company",
			EntityID:  "company",
		})
	}
	return nil
}

// ListCompanyUsers returns users for the tenant.
func (s *Service) ListCompanyUsers(ctx context.Context, actor *shared.Identity, companyID int64) ([]auth.User, error) {
	if err := checkCompanyAccess(actor, companyID); err != nil {
		return nil, err
	}
	return s.users.ListByCompany(ctx, companyID)
}

// Invite creates an invitation token valid for seven days.
func (s *Service) Invite(ctx context.Context, actor *shared.Identity, companyID int64, email, role string) (*Invitation, error) {
	if err := checkCompanyAdmin(actor, companyID); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, errors.New("invitation email is required")
	}
	if role == "" {
		role = shared.RoleViewer
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.MaxUsers > 0 && len(users) >= company.MaxUsers {
		return nil, errors.New("user quota reached for this plan")
	}
	return s.repo.CreateInvitation(ctx, Invitation{
		CompanyID: companyID,
		Token:     uuid.NewString(),
		Email:     email,
		Role:      role,
		ExpiresAt: time.Now().Add(InvitationTTL),
	})
}

// ListInvitations returns live invitations for the tenant.
func (s *Service) ListInvitations(ctx context.Context, actor *shared.Identity, companyID int64) ([]Invitation, error) {
	if err := checkCompanyAdmin(actor, companyID); err != nil {
		return nil, err
	}
	return s.repo.ListInvitations(ctx, companyID)
}

// AcceptInput completes an invitation with the new user's credentials.
type AcceptInput struct {
	Token    string
	Name     string
	Password string
}

// AcceptInvitation redeems a token and creates the invited user.
func (s *Service) AcceptInvitation(ctx context.Context, input AcceptInput) (*auth.User, error) {
	inv, err := s.repo.GetInvitationByToken(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, errors.New("password is required")
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	id, err := s.users.Create(ctx, auth.User{
		CompanyID:    inv.CompanyID,
		Email:        inv.Email,
		Name:         input.Name,
		Role:         inv.Role,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkInvitationAccepted(ctx, inv.ID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// PurgeExpiredInvitations removes stale tokens; called from the worker.
func (s *Service) PurgeExpiredInvitations(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredInvitations(ctx, time.Now())
}

// Slugify derives a URL-safe slug from a company name.
func Slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastHyphen := true
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func tierUserLimit(tier SubscriptionTier) int {
	switch tier {
	case TierEnterprise:
		return 100
	case TierStandard:
		return 20
	default:
		return 5
	}
}

func tierStorageLimit(tier SubscriptionTier) int {
	switch tier {
	case TierEnterprise:
		return 51200
	case TierStandard:
		return 10240
	default:
		return 1024
	}
}

func checkCompanyAccess(actor *shared.Identity, companyID int64) error {
	if actor == nil {
		return shared.ErrNotFound
	}
	if actor.Role == shared.RoleSuperAdmin {
		return nil
	}
	if actor.CompanyID != companyID {
		return shared.ErrNotFound
	}
	return nil
}

func checkCompanyAdmin(actor *shared.Identity, companyID int64) error {
	if err := checkCompanyAccess(actor, companyID); err != nil {
		return err
	}
	if !shared.RoleAtLeast(actor.Role, shared.RoleAdmin) {
		return errors.New("admin role required")
	}
	return nil
}
