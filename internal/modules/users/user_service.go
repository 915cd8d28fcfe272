package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ServiceInterface defines methods for user business logic.
type ServiceInterface interface {
	Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateStreet(ctx context.Context, req models.UpdateUserStreetRequest) (*models.User, *models.Street, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
}

type Service struct {
	repo      RepositoryInterface
	resolver  *lookup.Resolver
	jwtSecret string
	tokenTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryInterface, resolver *lookup.Resolver, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		resolver:  resolver,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Create registers a driver or resident. A resident may be created without a street.
func (s *Service) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}
	if err := models.CheckPasswordLength(req.Password); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	if req.StreetID != nil {
		if _, err := s.resolver.Street(ctx, *req.StreetID); err != nil {
			return nil, lookup.AsValidation("street_id", err)
		}
	}

	_, err = s.repo.FindByUsername(ctx, req.Username)
	if err == nil {
		return nil, models.NewValidationError("username", fmt.Sprintf("%s is already taken", req.Username))
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.CreateUser.FindByUsername: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.CreateUser.HashPassword: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		StreetID:     req.StreetID,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewValidationError("username", fmt.Sprintf("%s is already taken", req.Username))
		}
		return nil, fmt.Errorf("service.CreateUser.Create: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ListUsers: %w", err)
	}
	return users, nil
}

// UpdateStreet moves a resident to another street.
func (s *Service) UpdateStreet(ctx context.Context, req models.UpdateUserStreetRequest) (*models.User, *models.Street, error) {
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, nil, err
	}
	user, err := s.resolver.User(ctx, req.UserID, models.RoleResident)
	if err != nil {
		return nil, nil, err
	}
	street, err := s.resolver.Street(ctx, req.StreetID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.UpdateStreet(ctx, user.ID, street.ID); err != nil {
		return nil, nil, fmt.Errorf("service.UpdateStreet: %w", err)
	}
	user.StreetID = &street.ID

	s.logger.Info("user street updated", slog.Int64("user_id", user.ID), slog.Int64("street_id", street.ID))
	return user, street, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login.FindByUsername: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return s.generateAuthResponse(user)
}

func (s *Service) generateAuthResponse(user *models.User) (*models.AuthResponse, error) {
	now := s.now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &models.AuthResponse{AccessToken: signed, User: user}, nil
}
