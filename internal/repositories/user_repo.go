package repositories

import (
	"context"
	"fmt"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.User, error)
	GetWorkspaceIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	// Email is globally unique across workspaces.
	var count int
	emailCheckQuery := `SELECT COUNT(*) FROM users WHERE email = $1`
	if err := r.db.QueryRow(ctx, emailCheckQuery, user.Email).Scan(&count); err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user with email '%s' already exists", user.Email)
	}

	query := `
		INSERT INTO users (id, workspace_id, email, password_hash, first_name, last_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.WorkspaceID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Status)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, workspace_id, email, password_hash, first_name, last_name, status, created_at, updated_at
		FROM users
		WHERE workspace_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(&user.ID, &user.WorkspaceID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, workspace_id, email, password_hash, first_name, last_name, status, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	err := r.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.WorkspaceID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, status = $4, updated_at = NOW()
		WHERE workspace_id = $5 AND id = $6
	`
	_, err := r.db.Exec(ctx, query, user.Email, user.FirstName, user.LastName, user.Status, user.WorkspaceID, user.ID)
	return err
}

func (r *userRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	query := `DELETE FROM users WHERE workspace_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, workspaceID, id)
	return err
}

func (r *userRepo) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT id, workspace_id, email, password_hash, first_name, last_name, status, created_at, updated_at
		FROM users
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.WorkspaceID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Status, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *userRepo) GetWorkspaceIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var workspaceID uuid.UUID
	query := `SELECT workspace_id FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&workspaceID)
	if err != nil {
		return uuid.Nil, err
	}
	return workspaceID, nil
}
