package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// ErrEmailTaken indicates the registration email is already in use.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAccountDisabled indicates the account has been deactivated.
var ErrAccountDisabled = errors.New("account is disabled")

// ErrInvalidRefreshToken indicates a missing, expired or revoked refresh token.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// ErrRoleNotAllowed indicates a self-registration with a privileged role.
var ErrRoleNotAllowed = errors.New("role not allowed at registration")

// ErrFeatureDisabled indicates a flag-gated flow is turned off.
var ErrFeatureDisabled = errors.New("feature disabled")

// ErrInvalidResetToken indicates an unknown or expired password reset token.
var ErrInvalidResetToken = errors.New("invalid reset token")

// AuthConfig groups the token parameters of the auth service.
type AuthConfig struct {
	JWTSecret             string
	JWTRefreshSecret      string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	ForgotPasswordEnabled bool
}

// AuthService handles registration, login and token lifecycle.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error)
	Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error)
	Logout(ctx context.Context, userID uint) error
	ForgotPassword(ctx context.Context, payload dto.ForgotPasswordRequest) error
}

type authService struct {
	users     repository.UserRepository
	redis     *redis.Client
	notifier  Notifier
	validator *validator.Validate
	cfg       AuthConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users repository.UserRepository, redisClient *redis.Client, notifier Notifier, validate *validator.Validate, cfg AuthConfig, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		redis:     redisClient,
		notifier:  notifier,
		validator: validate,
		cfg:       cfg,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	role := strings.ToLower(strings.TrimSpace(payload.Role))
	if role == "" {
		role = models.RoleStudent
	}
	if role == models.RoleAdmin {
		return dto.UserResponse{}, ErrRoleNotAllowed
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user registered")

	if s.notifier != nil {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "user.registered",
			Recipient: user.Email,
			Subject:   "Welcome to EduStack",
			Body:      fmt.Sprintf("<p>Hi %s, your account has been created.</p>", user.Name),
			Payload:   map[string]interface{}{"user_id": user.ID},
		})
	}

	return dto.NewUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenPairResponse{}, ErrInvalidCredentials
		}
		return dto.TokenPairResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return dto.TokenPairResponse{}, ErrAccountDisabled
	}

	return s.issueTokenPair(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	claims, err := s.parseRefreshToken(payload.RefreshToken)
	if err != nil {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	userID, err := subjectToUserID(claims)
	if err != nil {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	stored, err := s.redis.Get(ctx, refreshKey(userID)).Result()
	if err != nil || stored != payload.RefreshToken {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	if !user.IsActive {
		return dto.TokenPairResponse{}, ErrAccountDisabled
	}

	return s.issueTokenPair(ctx, user)
}

func (s *authService) Logout(ctx context.Context, userID uint) error {
	if err := s.redis.Del(ctx, refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// ForgotPassword always succeeds from the caller's perspective so the
// endpoint cannot be used to probe which addresses have accounts.
func (s *authService) ForgotPassword(ctx context.Context, payload dto.ForgotPasswordRequest) error {
	if !s.cfg.ForgotPasswordEnabled {
		return ErrFeatureDisabled
	}

	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := s.redis.Set(ctx, resetKey(token), user.ID, time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Enqueue(ctx, Notification{
			Topic:     "user.password_reset",
			Recipient: user.Email,
			Subject:   "Password reset requested",
			Body:      fmt.Sprintf("<p>Use this token to reset your password: <b>%s</b></p>", token),
			Payload:   map[string]interface{}{"user_id": user.ID},
		})
	}

	return nil
}

func (s *authService) issueTokenPair(ctx context.Context, user models.User) (dto.TokenPairResponse, error) {
	now := s.now()

	accessClaims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.AccessTokenTTL).Unix(),
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", user.ID),
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.RefreshTokenTTL).Unix(),
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.JWTRefreshSecret))
	if err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	// Rotation: only the latest refresh token for a user is accepted.
	if err := s.redis.Set(ctx, refreshKey(user.ID), refreshToken, s.cfg.RefreshTokenTTL).Err(); err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		User:         dto.NewUserResponse(user),
	}, nil
}

func (s *authService) parseRefreshToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.cfg.JWTRefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidRefreshToken
	}

	return claims, nil
}

func subjectToUserID(claims jwt.MapClaims) (uint, error) {
	subject, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}

	var id uint
	if _, err := fmt.Sscanf(subject, "%d", &id); err != nil {
		return 0, err
	}

	return id, nil
}

func refreshKey(userID uint) string {
	return fmt.Sprintf("auth:refresh:%d", userID)
}

func resetKey(token string) string {
	return fmt.Sprintf("auth:reset:%s", token)
}
