package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/metrics"
	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/repository"
)

// AuthService handles registration, login, and identity resolution.
type AuthService struct {
	store   Store
	hasher  *auth.Hasher
	tokens  *auth.TokenService
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(store Store, hasher *auth.Hasher, tokens *auth.TokenService, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		metrics: recorder,
	}
}

// Register creates an account. The email is trimmed and kept as typed
// otherwise; the password is stored only as a digest.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		s.metrics.IncRegistration(metrics.OutcomeInvalidInput)
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if password == "" {
		s.metrics.IncRegistration(metrics.OutcomeInvalidInput)
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !storableText(email) || !storableText(password) {
		s.metrics.IncRegistration(metrics.OutcomeInvalidInput)
		return nil, fmt.Errorf("%w: email and password must be valid text", ErrInvalidInput)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			s.metrics.IncRegistration(metrics.OutcomeInvalidInput)
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		s.metrics.IncRegistration(metrics.OutcomeError)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: digest}
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		return q.CreateUser(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			s.metrics.IncRegistration(metrics.OutcomeEmailExists)
			return nil, ErrEmailExists
		}
		s.metrics.IncRegistration(metrics.OutcomeError)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncRegistration(metrics.OutcomeSuccess)
	return user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials and cost one hash comparison.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.IncLogin(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	// No stored account can match; keep the lookup away from the database.
	if !storableText(email) || !storableText(password) {
		s.hasher.VerifyDummy(password)
		s.metrics.IncLogin(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			s.metrics.IncLogin(metrics.OutcomeInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.IncLogin(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	s.metrics.IncLogin(metrics.OutcomeSuccess)
	return user, nil
}

// Login authenticates and issues an identity token for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.IssuedToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// ResolveBearer turns a bearer token into the user it names.
// Every verification failure and a user that no longer exists are reported
// as ErrUnauthenticated; storage failures are returned as-is.
func (s *AuthService) ResolveBearer(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		s.metrics.IncTokenRejected(metrics.ReasonMissing)
		return nil, ErrUnauthenticated
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			s.metrics.IncTokenRejected(metrics.ReasonExpired)
		} else {
			s.metrics.IncTokenRejected(metrics.ReasonInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncTokenRejected(metrics.ReasonUnknownUser)
			return nil, fmt.Errorf("%w: user %d no longer exists", ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

// ResolveSession turns a decoded session claim into a user. A missing claim
// or a claim naming a deleted user yields (nil, nil): no identity.
func (s *AuthService) ResolveSession(ctx context.Context, userID int64, ok bool) (*model.User, error) {
	if !ok || userID <= 0 {
		return nil, nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}
