package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domain "lumina/backend/internal/domain/auth"

	"github.com/google/uuid"
)

// Flow names reported to the Recorder.
const (
	FlowRegister       = "register"
	FlowLogin          = "login"
	FlowRenew          = "renew"
	FlowResetRequest   = "password_reset_request"
	FlowResetComplete  = "password_reset_complete"
	FlowPasswordChange = "password_change"
)

// NeutralResetMessage is returned by RequestPasswordReset whether or not the
// email belongs to an account.
const NeutralResetMessage = "If an account with that email exists, a password reset link has been sent."

// Dependencies are the collaborators of Service, built once at startup.
type Dependencies struct {
	Users   domain.UserRepository
	Tokens  TokenManager
	Resets  ResetTokenManager
	Hasher  PasswordHasher
	Mailer  Mailer
	Metrics Recorder
	Logger  *slog.Logger
}

// Config holds the static settings of Service.
type Config struct {
	// ResetURL is the page that receives the token as a "token" query parameter.
	ResetURL string
}

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users    domain.UserRepository
	tokens   TokenManager
	resets   ResetTokenManager
	hasher   PasswordHasher
	mailer   Mailer
	metrics  Recorder
	logger   *slog.Logger
	resetURL string
	nowFunc  func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs an auth service.
func NewService(deps Dependencies, cfg Config) *Service {
	s := &Service{
		users:    deps.Users,
		tokens:   deps.Tokens,
		resets:   deps.Resets,
		hasher:   deps.Hasher,
		mailer:   deps.Mailer,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		resetURL: cfg.ResetURL,
		nowFunc:  time.Now,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFunc = now
	return s
}

// RegisterInput carries registration fields. A nil Age means it was not sent.
type RegisterInput struct {
	FirstName string
	LastName  string
	Age       *int
	Email     string
	Password  string
}

// ResetInput carries the fields of a reset completion.
type ResetInput struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

// Register creates a new user and returns the persisted entity without a password hash.
// No session is issued.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := s.register(ctx, input)
	s.record(FlowRegister, err)
	return user, err
}

func (s *Service) register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := domain.NormalizeEmail(input.Email)

	var missing []string
	if firstName == "" {
		missing = append(missing, "firstName")
	}
	if lastName == "" {
		missing = append(missing, "lastName")
	}
	if input.Age == nil {
		missing = append(missing, "age")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, domain.MissingFields(missing...)
	}

	if *input.Age < domain.MinimumAge {
		return nil, domain.ErrUnderage
	}
	if !domain.ValidEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if err := domain.EvaluatePassword(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.StoreUnavailable(err)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Age:          *input.Age,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.StoreUnavailable(err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return user.Sanitized(), nil
}

// Login validates credentials and returns a token plus user.
// Unknown emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, *domain.User, error) {
	token, user, err := s.login(ctx, creds)
	s.record(FlowLogin, err)
	return token, user, err
}

func (s *Service) login(ctx context.Context, creds domain.Credentials) (string, *domain.User, error) {
	email := domain.NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(creds.Password, s.dummyDigest())
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, domain.StoreUnavailable(err)
	}

	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue session token: %w", err)
	}

	return token, user.Sanitized(), nil
}

// VerifyToken validates a bearer token and returns the user id it was issued for.
func (s *Service) VerifyToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrTokenInvalid
	}
	userID, err := s.tokens.Validate(token)
	if err != nil || userID == "" {
		return "", domain.ErrTokenInvalid
	}
	return userID, nil
}

// RenewToken exchanges a valid session token of an existing user for a fresh one.
func (s *Service) RenewToken(ctx context.Context, token string) (string, error) {
	renewed, err := s.renewToken(ctx, token)
	s.record(FlowRenew, err)
	return renewed, err
}

func (s *Service) renewToken(ctx context.Context, token string) (string, error) {
	userID, err := s.VerifyToken(token)
	if err != nil {
		return "", err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrTokenInvalid
		}
		return "", domain.StoreUnavailable(err)
	}
	renewed, err := s.tokens.Generate(userID)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return renewed, nil
}

// RequestPasswordReset issues a reset token for the account behind email and
// mails a link to it. The returned message is the same whether or not the
// account exists; only a delivery failure produces a different result.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	msg, err := s.requestPasswordReset(ctx, email)
	s.record(FlowResetRequest, err)
	return msg, err
}

func (s *Service) requestPasswordReset(ctx context.Context, email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", domain.ErrEmailRequired
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.StoreUnavailable(err)
		}
		// Same token work as the known-account path.
		if _, _, _, err := s.resets.Issue(); err != nil {
			return "", fmt.Errorf("issue reset token: %w", err)
		}
		return NeutralResetMessage, nil
	}

	raw, hash, expiresAt, err := s.resets.Issue()
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, domain.PasswordReset{
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", domain.StoreUnavailable(err)
	}

	link, err := buildResetLink(s.resetURL, raw)
	if err != nil {
		return "", err
	}
	body, err := renderResetEmail(resetEmailData{
		FirstName: user.FirstName,
		Link:      link,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", err
	}

	if err := s.mailer.Send(ctx, user.Email, resetEmailSubject, body); err != nil {
		s.logger.ErrorContext(ctx, "password reset email delivery failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: %w", domain.ErrMailDelivery, err)
	}

	s.logger.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
	return NeutralResetMessage, nil
}

// ResetPassword redeems a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, input ResetInput) error {
	err := s.resetPassword(ctx, input)
	s.record(FlowResetComplete, err)
	return err
}

func (s *Service) resetPassword(ctx context.Context, input ResetInput) error {
	raw := strings.TrimSpace(input.Token)

	var missing []string
	if raw == "" {
		missing = append(missing, "token")
	}
	if input.NewPassword == "" {
		missing = append(missing, "newPassword")
	}
	if input.ConfirmPassword == "" {
		missing = append(missing, "confirmPassword")
	}
	if len(missing) > 0 {
		return domain.MissingFields(missing...)
	}

	if input.NewPassword != input.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}
	if err := domain.EvaluatePassword(input.NewPassword); err != nil {
		return err
	}

	now := s.nowFunc()
	user, err := s.users.GetByValidResetTokenHash(ctx, s.resets.Hash(raw), now)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return domain.StoreUnavailable(err)
	}
	pending := user.PendingReset
	if pending == nil || !s.resets.Validate(raw, pending.TokenHash, pending.ExpiresAt) {
		return domain.ErrInvalidOrExpiredToken
	}

	hashed, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	// Consume the token before the password moves so a replay cannot win.
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return domain.StoreUnavailable(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed, now.UTC()); err != nil {
		return domain.StoreUnavailable(err)
	}

	s.logger.InfoContext(ctx, "password reset completed", slog.String("user_id", user.ID))
	return nil
}

// ChangePassword replaces the password of an authenticated user. Any pending
// reset is invalidated.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	err := s.changePassword(ctx, userID, currentPassword, newPassword)
	s.record(FlowPasswordChange, err)
	return err
}

func (s *Service) changePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	var missing []string
	if currentPassword == "" {
		missing = append(missing, "currentPassword")
	}
	if newPassword == "" {
		missing = append(missing, "newPassword")
	}
	if len(missing) > 0 {
		return domain.MissingFields(missing...)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.StoreUnavailable(err)
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return domain.ErrCurrentPasswordInvalid
	}
	if currentPassword == newPassword {
		return domain.ErrPasswordUnchanged
	}
	if err := domain.EvaluatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed, s.nowFunc().UTC()); err != nil {
		return domain.StoreUnavailable(err)
	}
	if user.PendingReset != nil {
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			return domain.StoreUnavailable(err)
		}
	}
	return nil
}

func (s *Service) record(flow string, err error) {
	result := "success"
	if err != nil {
		result = domain.CodeOf(err)
	}
	s.metrics.RecordAuthEvent(flow, result)
}

// dummyDigest is compared against on unknown-email logins so both paths pay
// for one hash verification.
func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn("could not prepare dummy password digest", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = digest
	})
	return s.dummyHash
}
