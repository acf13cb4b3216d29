package tenancy

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bi/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Slug lookups ride on a
// unique index instead of a hand-maintained secondary map.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrDuplicateSlug indicates the slug is taken.
var ErrDuplicateSlug = errors.New("tenancy: slug already in use")

const companyColumns = `id, slug, name, tier, max_users, max_storage_mb, settings, is_active, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Tier, &c.MaxUsers, &c.MaxStorageMB, &c.Settings, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCompany inserts a company and returns it with the assigned id.
func (r *Repository) CreateCompany(ctx context.Context, c Company) (*Company, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO companies (slug, name, tier, max_users, max_storage_mb, settings, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING `+companyColumns,
		c.Slug, c.Name, c.Tier, c.MaxUsers, c.MaxStorageMB, c.Settings, c.IsActive)
	created, err := scanCompany(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateSlug
		}
		return nil, err
	}
	return created, nil
}

// GetCompany returns the company with the given id.
func (r *Repository) GetCompany(ctx context.Context, id int64) (*Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
}

// GetCompanyBySlug returns the company with the given slug.
func (r *Repository) GetCompanyBySlug(ctx context.Context, slug string) (*Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE slug = $1`, slug))
}

// UpdateCompany applies mutable fields.
func (r *Repository) UpdateCompany(ctx context.Context, c Company) (*Company, error) {
	row := r.pool.QueryRow(ctx, `UPDATE companies SET name = $2, tier = $3, max_users = $4, max_storage_mb = $5, settings = $6, updated_at = NOW()
WHERE id = $1 RETURNING `+companyColumns,
		c.ID, c.Name, c.Tier, c.MaxUsers, c.MaxStorageMB, c.Settings)
	return scanCompany(row)
}

// DeactivateCompany flips is_active off. Rows are never deleted.
func (r *Repository) DeactivateCompany(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE companies SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListCompanies returns all companies ordered by id.
func (r *Repository) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Tier, &c.MaxUsers, &c.MaxStorageMB, &c.Settings, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

const invitationColumns = `id, company_id, token, email, role, expires_at, accepted_at, created_at`

// CreateInvitation inserts an invitation.
func (r *Repository) CreateInvitation(ctx context.Context, inv Invitation) (*Invitation, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO invitations (company_id, token, email, role, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING `+invitationColumns,
		inv.CompanyID, inv.Token, inv.Email, inv.Role, inv.ExpiresAt)
	return scanInvitation(row)
}

func scanInvitation(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.Token, &inv.Email, &inv.Role, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// GetInvitationByToken returns a live invitation. Expired or accepted tokens
// behave as missing.
func (r *Repository) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations
WHERE token = $1 AND accepted_at IS NULL AND expires_at > NOW()`, token)
	return scanInvitation(row)
}

// ListInvitations returns live invitations for a company.
func (r *Repository) ListInvitations(ctx context.Context, companyID int64) ([]Invitation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invitationColumns+` FROM invitations
WHERE company_id = $1 AND accepted_at IS NULL AND expires_at > NOW() ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invitations []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.Token, &inv.Email, &inv.Role, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// MarkInvitationAccepted stamps accepted_at.
func (r *Repository) MarkInvitationAccepted(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invitations SET accepted_at = NOW() WHERE id = $1 AND accepted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PurgeExpiredInvitations removes invitations past their expiry.
func (r *Repository) PurgeExpiredInvitations(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invitations WHERE expires_at < $1 AND accepted_at IS NULL`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
