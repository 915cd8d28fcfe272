package streets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"street-dispatch/internal/models"
	"street-dispatch/pkg/utils"
)

type ServiceInterface interface {
	Add(ctx context.Context, req models.AddStreetRequest) (*models.Street, error)
	List(ctx context.Context) ([]*models.Street, error)
}

type Service struct {
	repo   RepositoryInterface
	logger *slog.Logger
}

func NewService(repo RepositoryInterface, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Add creates a street. A name that already exists is rejected and nothing is written.
func (s *Service) Add(ctx context.Context, req models.AddStreetRequest) (*models.Street, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}

	_, err := s.repo.FindByName(ctx, req.Name)
	if err == nil {
		return nil, models.NewValidationError("name", fmt.Sprintf("street %s already exists", req.Name))
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.AddStreet.FindByName: %w", err)
	}

	street, err := s.repo.Create(ctx, req.Name)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewValidationError("name", fmt.Sprintf("street %s already exists", req.Name))
		}
		return nil, fmt.Errorf("service.AddStreet.Create: %w", err)
	}

	s.logger.Info("street created", slog.Int64("street_id", street.ID), slog.String("name", street.Name))
	return street, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Street, error) {
	streets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ListStreets: %w", err)
	}
	return streets, nil
}
