package services

import (
	"context"
	"fmt"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

type DepartmentService interface {
	Create(ctx context.Context, department *models.Department) (*models.Department, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Department, error)
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Department, error)
}

type departmentService struct {
	departmentRepo repositories.DepartmentRepository
	agentRepo      repositories.AgentRepository
}

func NewDepartmentService(departmentRepo repositories.DepartmentRepository, agentRepo repositories.AgentRepository) DepartmentService {
	return &departmentService{departmentRepo: departmentRepo, agentRepo: agentRepo}
}

func (s *departmentService) Create(ctx context.Context, department *models.Department) (*models.Department, error) {
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	if err := s.departmentRepo.Create(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return department, nil
}

func (s *departmentService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Department, error) {
	return s.departmentRepo.GetByID(ctx, workspaceID, id)
}

func (s *departmentService) Update(ctx context.Context, department *models.Department) error {
	return s.departmentRepo.Update(ctx, department)
}

// Delete refuses while agents are still assigned.
func (s *departmentService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	agents, err := s.agentRepo.ListByDepartment(ctx, workspaceID, id, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to check department agents: %w", err)
	}
	if len(agents) > 0 {
		return fmt.Errorf("department %s still has agents", id)
	}
	return s.departmentRepo.SoftDelete(ctx, workspaceID, id)
}

func (s *departmentService) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Department, error) {
	return s.departmentRepo.List(ctx, workspaceID, limit, offset)
}
