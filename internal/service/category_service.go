package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/repository"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

// CategoryService manages request categories and their approver chains.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewCategoryService creates the service.
func NewCategoryService(categories repository.CategoryRepository, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, logger: logger}
}

// CategoryInput carries the writable category fields. Approvers uses the
// pipe-delimited chain spec; it is validated on write so a malformed chain
// never reaches ticket creation.
type CategoryInput struct {
	Name        string
	Description string
	Keywords    string
	Approvers   string
}

// Create validates and stores a new category.
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}
	if _, err := domain.DecodeApproverChain(input.Approvers); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	if _, err := s.categories.GetByName(ctx, name); err == nil {
		return nil, apperrors.NewConflict("a category with this name already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	category := &domain.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Keywords:    strings.TrimSpace(input.Keywords),
		Approvers:   strings.TrimSpace(input.Approvers),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("category created", zap.String("category_id", category.ID), zap.String("name", category.Name))
	return category, nil
}

// Update rewrites an existing category. Existing tickets keep their decoded
// chains; the new approver spec only affects chains built afterwards.
func (s *CategoryService) Update(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}
	if _, err := domain.DecodeApproverChain(input.Approvers); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	category.Name = name
	category.Description = strings.TrimSpace(input.Description)
	category.Keywords = strings.TrimSpace(input.Keywords)
	category.Approvers = strings.TrimSpace(input.Approvers)
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// List returns all categories in creation order.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}
