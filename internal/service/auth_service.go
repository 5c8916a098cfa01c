package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration and login flows.
type AuthService struct {
	users          repository.UserRepository
	tokenMgr       *auth.TokenManager
	bcryptCost     int
	allowedDomains map[string]struct{}
	logger         *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// RegisterInput describes a new employee account.
type RegisterInput struct {
	EmployeeNo string
	Email      string
	Password   string
	Name       string
	EngName    *string
	Title      *string
	Department *string
}

// Session is an issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(cfg.Auth.AllowedEmailDomains))
	for _, d := range cfg.Auth.AllowedEmailDomains {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))] = struct{}{}
	}
	return &AuthService{
		users:          deps.UserRepo,
		tokenMgr:       auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:     cfg.Auth.BcryptCost,
		allowedDomains: allowed,
		logger:         logger,
	}
}

// Login authenticates an employee by number and password. Unverified
// accounts cannot sign in.
func (s *AuthService) Login(ctx context.Context, employeeNo, password string) (*Session, error) {
	user, err := s.users.GetByEmployeeNo(ctx, strings.TrimSpace(employeeNo))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Verified {
		return nil, apperrors.NewForbidden("account is not verified")
	}
	return s.issue(user)
}

// Register creates a verified requester account. Only addresses in the
// configured email domains may register.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !s.domainAllowed(email) {
		return nil, apperrors.NewForbidden("email domain is not allowed to register")
	}
	user, err := s.CreateUser(ctx, input, domain.RoleRequester)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateUser stores a verified account with the given role. It backs both
// self-registration and the bootstrap command.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	employeeNo, err := requireText("emp_no", input.EmployeeNo)
	if err != nil {
		return nil, err
	}
	name, err := requireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password is too short", map[string]any{"field": "password", "min": minPasswordLength})
	}

	if _, err := s.users.GetByEmployeeNo(ctx, employeeNo); err == nil {
		return nil, apperrors.NewValidationReason("EMPLOYEE_EXISTS", "employee number already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidationReason("EMAIL_EXISTS", "email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		EmployeeNo:   employeeNo,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		EngName:      domain.NormalizeText(input.EngName),
		Title:        domain.NormalizeText(input.Title),
		Department:   domain.NormalizeText(input.Department),
		Role:         role,
		Verified:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created", zap.String("emp_no", user.EmployeeNo), zap.String("role", string(role)))
	return user, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := s.users.GetByEmployeeNo(ctx, p.EmployeeNo)
	if err != nil {
		return nil, notFound(err, "user", p.EmployeeNo)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.EmployeeNo, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) domainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || len(s.allowedDomains) == 0 {
		return false
	}
	_, ok := s.allowedDomains[email[at+1:]]
	return ok
}
