package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"authservice/internal/auth"
	apperrors "authservice/internal/errors"
	"authservice/internal/metrics"
	"authservice/internal/model"
	"authservice/internal/repository"
)

// TokenPair is the session handed out on login and provider callback.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService establishes and refreshes sessions.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	ProviderCallback(ctx context.Context, profile auth.Profile) (*TokenPair, error)
}

type authService struct {
	userRepo     repository.UserRepository
	providerRepo repository.AuthProviderRepository
	jwtService   *auth.JWTService
	hasher       *auth.PasswordHasher
	metrics      metrics.MetricsCollector
	validate     *validator.Validate

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	providerRepo repository.AuthProviderRepository,
	jwtService *auth.JWTService,
	hasher *auth.PasswordHasher,
	m metrics.MetricsCollector,
) AuthService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &authService{
		userRepo:     userRepo,
		providerRepo: providerRepo,
		jwtService:   jwtService,
		hasher:       hasher,
		metrics:      m,
		validate:     newValidator(),
	}
}

// Register creates a credential account with role regular.
func (s *authService) Register(ctx context.Context, name, email, password string) (user *model.User, err error) {
	defer func() { s.metrics.RecordAuthAttempt(metrics.OpRegister, err == nil) }()

	in := registerInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation(registerFailure(verrs))
		}
		return nil, fmt.Errorf("validate registration: %w", err)
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailInUse
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperrors.Validation("Password must be at most 72 bytes")
		}
		return nil, err
	}

	user = &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: &digest,
		Role:         model.RoleRegular,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race against a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns a token pair.
func (s *authService) Login(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	defer func() { s.metrics.RecordAuthAttempt(metrics.OpLogin, err == nil) }()

	// Registration stores the trimmed address.
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("Please provide email and password")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.burnVerify(password)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.HasPassword() {
		s.burnVerify(password)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, *user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issuePair(user)
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (accessToken string, err error) {
	defer func() { s.metrics.RecordAuthAttempt(metrics.OpRefresh, err == nil) }()

	if strings.TrimSpace(refreshToken) == "" {
		return "", apperrors.ErrRefreshTokenRequired
	}

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}

	accessToken, err = s.jwtService.GenerateAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// ProviderCallback resolves a provider identity to a local user, linking by
// email or creating a password-less account when needed, and returns a token
// pair. Repeated callbacks for the same identity resolve through the link.
func (s *authService) ProviderCallback(ctx context.Context, profile auth.Profile) (pair *TokenPair, err error) {
	defer func() { s.metrics.RecordAuthAttempt(metrics.OpProviderCallback, err == nil) }()

	if profile.Provider == "" || profile.SubjectID == "" || profile.Email == "" {
		return nil, apperrors.ErrAuthorizationFailed
	}

	user, err := s.providerRepo.FindUser(ctx, profile.Provider, profile.SubjectID)
	switch {
	case err == nil:
		return s.issuePair(user)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find provider link: %w", err)
	}

	user, err = s.findOrCreateProviderUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	if err := s.providerRepo.Create(ctx, user.ID, profile.Provider, profile.SubjectID); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create provider link: %w", err)
		}
		// A concurrent callback linked this identity first; use its user.
		user, err = s.providerRepo.FindUser(ctx, profile.Provider, profile.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("find provider link: %w", err)
		}
	}

	return s.issuePair(user)
}

func (s *authService) findOrCreateProviderUser(ctx context.Context, profile auth.Profile) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, profile.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user = &model.User{
		Name:  profile.Name,
		Email: profile.Email,
		Role:  model.RoleRegular,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		user, err = s.userRepo.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
	}
	return user, nil
}

func (s *authService) issuePair(user *model.User) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// burnVerify spends one bcrypt comparison so that unknown and password-less
// accounts take as long to reject as a wrong password.
func (s *authService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("not-a-real-password")
	})
	_ = s.hasher.Verify(password, s.dummyDigest)
}
