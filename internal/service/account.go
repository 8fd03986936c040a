package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Legacy coarse roles stored on the user row.
const (
	LegacyAdmin    = "admin"
	LegacyProvider = "provider"
	LegacyUser     = "user"
	LegacyClient   = "client"
	LegacySupport  = "support"
)

func validLegacyRole(role string) bool {
	switch role {
	case LegacyAdmin, LegacyProvider, LegacyUser, LegacyClient, LegacySupport:
		return true
	}
	return false
}

// AccountService owns tenants, users and credentials.
type AccountService struct {
	tenants  repository.TenantRepository
	users    repository.UserRepository
	roles    *RoleService
	hashCost int
	logger   *zap.Logger
}

func NewAccountService(tenants repository.TenantRepository, users repository.UserRepository, roles *RoleService, logger *zap.Logger) *AccountService {
	return &AccountService{
		tenants:  tenants,
		users:    users,
		roles:    roles,
		hashCost: bcrypt.DefaultCost,
		logger:   logger,
	}
}

type SignupInput struct {
	TenantName  string
	Email       string
	DisplayName string
	Password    string
}

type NewUserInput struct {
	TenantID    uuid.UUID
	Email       string
	DisplayName string
	Password    string
	Role        string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user by email: %w", err)
	}
	if existing != nil {
		return apperr.Conflict("email already registered")
	}
	return nil
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Signup creates a tenant with its system roles and an admin user holding
// the admin role. All of it commits together or not at all, so a failed
// signup can be retried with the same email.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	roles, err := s.roles.SystemRoles(ctx, uuid.Nil)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	tenant, user, err := s.tenants.Bootstrap(ctx, models.TenantBootstrap{
		TenantName: strings.TrimSpace(in.TenantName),
		Admin: models.NewUser{
			Email:        email,
			DisplayName:  strings.TrimSpace(in.DisplayName),
			Role:         LegacyAdmin,
			Status:       models.UserStatusActive,
			PasswordHash: hash,
		},
		Roles:     roles,
		AdminRole: LegacyAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap tenant: %w", err)
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords get
// the same error.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if !user.IsActive() {
		return nil, apperr.Forbidden("account is inactive")
	}
	return user, nil
}

// CreateUser adds a user to an existing tenant. The user receives the
// tenant default role plus the system role matching their legacy role.
func (s *AccountService) CreateUser(ctx context.Context, in NewUserInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = LegacyClient
	}
	if !validLegacyRole(in.Role) {
		return nil, apperr.Validation("invalid role %q", in.Role)
	}
	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, models.NewUser{
		TenantID:     in.TenantID,
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Role:         in.Role,
		Status:       models.UserStatusActive,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.roles.AssignDefault(ctx, in.TenantID, user.ID); err != nil {
		return nil, err
	}
	if in.Role != s.roles.defaultRole {
		if _, err := s.roles.AssignByName(ctx, in.TenantID, user.ID, in.Role); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *AccountService) Get(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (s *AccountService) List(ctx context.Context, tenantID uuid.UUID) ([]models.User, error) {
	users, err := s.users.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
