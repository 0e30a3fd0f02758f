package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type PartnerRepository interface {
	Create(ctx context.Context, partner *models.Partner) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Partner, error)
	Update(ctx context.Context, partner *models.Partner) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Partner, error)
}

type partnerRepo struct {
	db Database
}

func NewPartnerRepo(db Database) PartnerRepository {
	return &partnerRepo{db: db}
}

func (r *partnerRepo) Create(ctx context.Context, partner *models.Partner) error {
	query := `
		INSERT INTO partners (id, name, subdomain, status, stripe_account_id, billing_mode, fallback_enabled, margin_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, partner.ID, partner.Name, partner.Subdomain, partner.Status, partner.StripeAccountID, partner.BillingMode, partner.FallbackEnabled, partner.MarginPercent)
	return err
}

func (r *partnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	partner := &models.Partner{}
	query := `
		SELECT id, name, subdomain, status, stripe_account_id, billing_mode, fallback_enabled, margin_percent, created_at, updated_at
		FROM partners
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&partner.ID, &partner.Name, &partner.Subdomain, &partner.Status, &partner.StripeAccountID, &partner.BillingMode, &partner.FallbackEnabled, &partner.MarginPercent, &partner.CreatedAt, &partner.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return partner, nil
}

func (r *partnerRepo) GetBySubdomain(ctx context.Context, subdomain string) (*models.Partner, error) {
	partner := &models.Partner{}
	query := `
		SELECT id, name, subdomain, status, stripe_account_id, billing_mode, fallback_enabled, margin_percent, created_at, updated_at
		FROM partners
		WHERE subdomain = $1
	`
	err := r.db.QueryRow(ctx, query, subdomain).Scan(&partner.ID, &partner.Name, &partner.Subdomain, &partner.Status, &partner.StripeAccountID, &partner.BillingMode, &partner.FallbackEnabled, &partner.MarginPercent, &partner.CreatedAt, &partner.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return partner, nil
}

func (r *partnerRepo) Update(ctx context.Context, partner *models.Partner) error {
	query := `
		UPDATE partners
		SET name = $1, subdomain = $2, status = $3, stripe_account_id = $4, billing_mode = $5, fallback_enabled = $6, margin_percent = $7, updated_at = NOW()
		WHERE id = $8
	`
	_, err := r.db.Exec(ctx, query, partner.Name, partner.Subdomain, partner.Status, partner.StripeAccountID, partner.BillingMode, partner.FallbackEnabled, partner.MarginPercent, partner.ID)
	return err
}

func (r *partnerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM partners WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *partnerRepo) List(ctx context.Context, limit, offset int) ([]*models.Partner, error) {
	query := `
		SELECT id, name, subdomain, status, stripe_account_id, billing_mode, fallback_enabled, margin_percent, created_at, updated_at
		FROM partners
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []*models.Partner
	for rows.Next() {
		partner := &models.Partner{}
		if err := rows.Scan(&partner.ID, &partner.Name, &partner.Subdomain, &partner.Status, &partner.StripeAccountID, &partner.BillingMode, &partner.FallbackEnabled, &partner.MarginPercent, &partner.CreatedAt, &partner.UpdatedAt); err != nil {
			return nil, err
		}
		partners = append(partners, partner)
	}
	return partners, nil
}
