package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
	"github.com/innkeep/innkeep/services/frontdesk/internal/repository"
)

type AuthService interface {
	Login(ctx context.Context, tenantID string, req *domain.LoginReq) (*domain.LoginRes, error)
	CreateUser(ctx context.Context, tenantID string, req *domain.CreateUserReq) (*domain.StaffUser, error)
	GetUser(ctx context.Context, tenantID, id string) (*domain.StaffUser, error)
	ListUsers(ctx context.Context, tenantID string) ([]domain.StaffUser, error)
	UpdateUser(ctx context.Context, tenantID, id string, req *domain.UpdateUserReq) (*domain.StaffUser, error)
	DeleteUser(ctx context.Context, tenantID, id string) error
}

type authService struct {
	staffRepo repository.StaffRepository
	config    *config.Config
}

func NewAuthService(staffRepo repository.StaffRepository, config *config.Config) AuthService {
	return &authService{
		staffRepo: staffRepo,
		config:    config,
	}
}

func (s *authService) Login(ctx context.Context, tenantID string, req *domain.LoginReq) (*domain.LoginRes, error) {
	user, err := s.staffRepo.GetByEmail(ctx, tenantID, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		// Burn a comparison anyway so a missing account costs the same as a
		// wrong password.
		_, _ = argon2id.ComparePasswordAndHash(req.Password, "$argon2id$v=19$m=65536,t=1,p=2$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		return nil, domain.ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := auth.NewStaffToken(user.TenantID, user.Email, user.Role, s.config.Auth.JWTSecret, s.config.Auth.StaffTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mint staff token: %w", err)
	}

	logger.InfoContext(ctx, "Staff login", "user_id", user.ID, "tenant_id", user.TenantID, "role", user.Role)
	return &domain.LoginRes{Token: token, User: user}, nil
}

func (s *authService) CreateUser(ctx context.Context, tenantID string, req *domain.CreateUserReq) (*domain.StaffUser, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	role := req.Role
	if role == "" {
		role = "staff"
	}
	if role != "staff" && role != "admin" {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	existing, err := s.staffRepo.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.StaffUser{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Email:        email,
		Name:         req.Name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.staffRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, tenantID, id string) (*domain.StaffUser, error) {
	user, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.TenantID != tenantID {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *authService) ListUsers(ctx context.Context, tenantID string) ([]domain.StaffUser, error) {
	return s.staffRepo.ListByTenant(ctx, tenantID)
}

func (s *authService) UpdateUser(ctx context.Context, tenantID, id string, req *domain.UpdateUserReq) (*domain.StaffUser, error) {
	user, err := s.GetUser(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if *req.Role != "staff" && *req.Role != "admin" {
			return nil, fmt.Errorf("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Password != nil {
		hash, err := argon2id.CreateHash(*req.Password, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.staffRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *authService) DeleteUser(ctx context.Context, tenantID, id string) error {
	if _, err := s.GetUser(ctx, tenantID, id); err != nil {
		return err
	}
	return s.staffRepo.Delete(ctx, id)
}
