package services

import (
	"context"
	"fmt"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

type UserService interface {
	Create(ctx context.Context, user *models.User, password, roleName string) (*models.User, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	authSvc  AuthService
	rbacSvc  RBACService
}

func NewUserService(userRepo repositories.UserRepository, authSvc AuthService, rbacSvc RBACService) UserService {
	return &userService{userRepo: userRepo, authSvc: authSvc, rbacSvc: rbacSvc}
}

func (s *userService) Create(ctx context.Context, user *models.User, password, roleName string) (*models.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = "active"
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	user.PasswordHash = s.authSvc.HashPassword(password)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if roleName != "" {
		if err := s.rbacSvc.AssignRole(ctx, user.WorkspaceID, user.ID, roleName); err != nil {
			return nil, fmt.Errorf("user created but role assignment failed: %w", err)
		}
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, workspaceID, id)
}

func (s *userService) Update(ctx context.Context, user *models.User) error {
	return s.userRepo.Update(ctx, user)
}

func (s *userService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.userRepo.Delete(ctx, workspaceID, id)
}

func (s *userService) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.User, error) {
	return s.userRepo.List(ctx, workspaceID, limit, offset)
}
