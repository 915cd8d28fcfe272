package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"street-dispatch/internal/metrics"
	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/pkg/utils"
)

type ServiceInterface interface {
	Open(ctx context.Context, req models.OpenRequestRequest) (*models.Request, error)
	// Manage applies action and returns the request with the status it had before.
	Manage(ctx context.Context, requestID int64, action string) (*models.Request, models.RequestStatus, error)
	ListForRoute(ctx context.Context, routeID int64) ([]*models.Request, error)
}

type Service struct {
	repo     RepositoryInterface
	resolver *lookup.Resolver
	strict   bool
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewService builds the request lifecycle. With strict set, each action is only
// allowed from its source statuses; otherwise actions overwrite unconditionally.
func NewService(repo RepositoryInterface, resolver *lookup.Resolver, strict bool, recorder metrics.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		strict:   strict,
		metrics:  recorder,
		logger:   logger,
	}
}

func (s *Service) Open(ctx context.Context, req models.OpenRequestRequest) (*models.Request, error) {
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}

	resident, err := s.resolver.User(ctx, req.ResidentID, models.RoleResident)
	if err != nil {
		return nil, err
	}
	route, err := s.resolver.Route(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if !route.Status.AcceptsRequests() {
		s.metrics.RecordOperationFailure("request.open")
		return nil, &models.InvalidTransitionError{
			Entity:  "route",
			ID:      route.ID,
			Action:  "request a stop for",
			Current: string(route.Status),
		}
	}

	var notes *string
	if n := strings.TrimSpace(req.Notes); n != "" {
		notes = &n
	}
	created, err := s.repo.Create(ctx, &models.Request{
		RouteID:    route.ID,
		ResidentID: resident.ID,
		Notes:      notes,
		Quantity:   req.Quantity,
		Status:     models.RequestRequested,
	})
	if err != nil {
		return nil, fmt.Errorf("service.OpenRequest: %w", err)
	}

	s.logger.Info("stop request opened",
		slog.Int64("request_id", created.ID),
		slog.Int64("route_id", route.ID),
		slog.Int64("resident_id", resident.ID),
	)
	return created, nil
}

func (s *Service) Manage(ctx context.Context, requestID int64, action string) (*models.Request, models.RequestStatus, error) {
	act, err := models.ParseRequestAction(action)
	if err != nil {
		return nil, "", err
	}

	req, err := s.repo.FindByID(ctx, requestID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", &models.NotFoundError{Entity: "request", ID: requestID}
	}
	if err != nil {
		return nil, "", fmt.Errorf("service.ManageRequest.Find: %w", err)
	}

	old := req.Status
	target := act.Target()

	if s.strict {
		if !act.AllowedFrom(old) {
			s.metrics.RecordOperationFailure("request.manage")
			return nil, "", s.invalidAction(req.ID, act, old)
		}
		err = s.repo.TransitionStatus(ctx, req.ID, old, target)
		if errors.Is(err, models.ErrStatusConflict) {
			current, ferr := s.repo.FindByID(ctx, req.ID)
			if ferr != nil {
				return nil, "", fmt.Errorf("service.ManageRequest.Reread: %w", ferr)
			}
			s.metrics.RecordOperationFailure("request.manage")
			return nil, "", s.invalidAction(req.ID, act, current.Status)
		}
	} else {
		err = s.repo.SetStatus(ctx, req.ID, target)
	}
	if err != nil {
		return nil, "", fmt.Errorf("service.ManageRequest: %w", err)
	}

	req.Status = target
	s.metrics.RecordRequestAction(string(act), string(old), string(target))
	s.logger.Info("stop request status changed",
		slog.Int64("request_id", req.ID),
		slog.String("action", string(act)),
		slog.String("old_status", string(old)),
		slog.String("new_status", string(target)),
	)
	return req, old, nil
}

func (s *Service) invalidAction(id int64, act models.RequestAction, current models.RequestStatus) error {
	return &models.InvalidTransitionError{Entity: "request", ID: id, Action: string(act), Current: string(current)}
}

func (s *Service) ListForRoute(ctx context.Context, routeID int64) ([]*models.Request, error) {
	route, err := s.resolver.Route(ctx, routeID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.repo.ListByRoute(ctx, route.ID)
	if err != nil {
		return nil, fmt.Errorf("service.ListRequests: %w", err)
	}
	return reqs, nil
}
