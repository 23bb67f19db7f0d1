package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

// ErrTokenRevoked is returned for tokens invalidated by logout.
var ErrTokenRevoked = errors.New("token has been revoked")

// SessionClaims are the JWT claims of a signed-in user.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts the claims into an authorization principal.
func (c SessionClaims) Principal() authz.Principal {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return authz.Anonymous()
	}
	role, err := models.ParseRole(c.Role)
	if err != nil {
		return authz.Anonymous()
	}
	return authz.NewPrincipal(uint(id), role)
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

// TokenVerifier validates bearer tokens for the HTTP layer.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (SessionClaims, error)
}

// AuthService covers sign-up, sign-in and credential management.
type AuthService interface {
	TokenVerifier
	RegisterAccount(ctx context.Context, req dto.SignupRequest) (dto.UserResponse, error)
	Authenticate(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Logout(ctx context.Context, claims SessionClaims) error
	ChangePassword(ctx context.Context, principal authz.Principal, req dto.ChangePasswordRequest) error
	EnsureAdmin(ctx context.Context, username, email, password string) (bool, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    repository.TokenRevocationStore
	validator *validator.Validate
	recorder  ActionRecorder
	config    AuthConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the auth service. tokens may be nil, in which case
// logout cannot revoke tokens before they expire.
func NewAuthService(users repository.UserRepository, tokens repository.TokenRevocationStore, validator *validator.Validate, recorder ActionRecorder, config AuthConfig, logger zerolog.Logger) AuthService {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}

	return &authService{
		users:     users,
		tokens:    tokens,
		validator: validator,
		recorder:  recorder,
		config:    config,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) RegisterAccount(ctx context.Context, req dto.SignupRequest) (dto.UserResponse, error) {
	if err := authz.Authorize(authz.Anonymous(), authz.ActionSignup); err != nil {
		return dto.UserResponse{}, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := validateStruct(s.validator, req); err != nil {
		return dto.UserResponse{}, err
	}

	taken, err := s.users.TakenFields(ctx, req.Username, req.Email, req.StudentID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if len(taken) > 0 {
		fields := make(map[string]string, len(taken))
		for _, field := range taken {
			fields[field] = "is already taken"
		}
		return dto.UserResponse{}, &ConflictError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		StudentProfile: &models.StudentProfile{
			RealName:  strings.TrimSpace(req.RealName),
			StudentID: req.StudentID,
			Grade:     strings.TrimSpace(req.Grade),
			Major:     strings.TrimSpace(req.Major),
			College:   strings.TrimSpace(req.College),
			Phone:     strings.TrimSpace(req.Phone),
			QQ:        strings.TrimSpace(req.QQ),
		},
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, &ConflictError{Fields: map[string]string{"account": "is already taken"}}
		}
		return dto.UserResponse{}, err
	}

	s.record(ctx, LogEntry{
		UserID:   user.ID,
		Action:   ActionUserSignup,
		Details:  fmt.Sprintf("student %s (%s) signed up", user.Username, req.StudentID),
		Metadata: map[string]interface{}{"email": maskEmailAddress(user.Email)},
	})

	return dto.NewUserResponse(user), nil
}

func (s *authService) Authenticate(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return dto.LoginResponse{}, err
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	if !user.Role.Valid() {
		s.logger.Warn().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("refusing login for unknown role")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return dto.LoginResponse{}, err
	}
	user.LastLogin = &now

	token, expiresAt, err := s.issueToken(user, now)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.record(ctx, LogEntry{UserID: user.ID, Action: ActionUserLogin, Details: fmt.Sprintf("%s signed in", user.Username)})

	return dto.LoginResponse{Token: token, ExpiresAt: expiresAt, User: dto.NewUserResponse(user)}, nil
}

func (s *authService) Verify(ctx context.Context, token string) (SessionClaims, error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return SessionClaims{}, err
	}
	if !parsed.Valid {
		return SessionClaims{}, jwt.ErrTokenInvalidClaims
	}

	if s.tokens != nil && claims.ID != "" {
		revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
		if err != nil {
			return SessionClaims{}, err
		}
		if revoked {
			return SessionClaims{}, ErrTokenRevoked
		}
	}

	return claims, nil
}

func (s *authService) Logout(ctx context.Context, claims SessionClaims) error {
	principal := claims.Principal()
	if err := authz.Authorize(principal, authz.ActionLogout); err != nil {
		return err
	}

	if s.tokens == nil {
		s.logger.Warn().Msg("token revocation store not configured; logout is client side only")
	} else if claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Sub(s.now())
		if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
			return err
		}
	}

	s.record(ctx, LogEntry{UserID: principal.UserID, Action: ActionUserLogout, Details: "signed out"})
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, principal authz.Principal, req dto.ChangePasswordRequest) error {
	if err := authz.Authorize(principal, authz.ActionChangePassword); err != nil {
		return err
	}
	if err := validateStruct(s.validator, req); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return NewValidationError(map[string]string{"old_password": "is incorrect"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.record(ctx, LogEntry{UserID: user.ID, Action: ActionPasswordChange, Details: "password changed"})
	return nil
}

// EnsureAdmin creates the bootstrap administrator when no admin exists yet.
// It reports whether an account was created.
func (s *authService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}

	admins, err := s.users.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if admins > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	if email == "" {
		email = username + "@localhost"
	}

	admin := models.User{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := s.users.Create(ctx, &admin); err != nil {
		return false, err
	}

	s.logger.Info().Str("username", username).Msg("bootstrap administrator created")
	return true, nil
}

func (s *authService) issueToken(user models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.config.TTL)
	claims := SessionClaims{
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *authService) record(ctx context.Context, entry LogEntry) {
	if s.recorder != nil {
		s.recorder.RecordAction(ctx, entry)
	}
}
