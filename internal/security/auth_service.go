package security

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"churchinventory/internal/metrics"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	pkgsecurity "churchinventory/pkg/security"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// maxUsernameLength matches the username columns; longer names cannot
// belong to an account.
const maxUsernameLength = 100

// dummyHash is compared against when the username is unknown so that the
// response time does not reveal whether the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("church-inventory-dummy-password"), bcrypt.DefaultCost)

type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type AuthService struct {
	users    UserFinder
	attempts LoginAttemptRepository
	issuer   *pkgsecurity.TokenIssuer
	policy   LockoutPolicy
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserFinder,
	attempts LoginAttemptRepository,
	issuer *pkgsecurity.TokenIssuer,
	policy LockoutPolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		attempts: attempts,
		issuer:   issuer,
		policy:   policy,
		metrics:  m,
		logger:   logger.Named("auth"),
		now:      time.Now,
	}
}

// Authenticate checks the credentials and, on success, issues a token. Every
// call that reaches the credential check appends a login attempt, including
// calls rejected by the lockout.
func (s *AuthService) Authenticate(ctx context.Context, username, password, ipAddress string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, custom_error.ErrInvalidCredentials
	}
	username, overLong := truncateUsername(username)

	now := s.now().UTC()

	streak, err := s.attempts.FailureStreak(ctx, username, ipAddress)
	if err != nil {
		return nil, err
	}
	if until := s.policy.LockedUntil(streak.Failures, streak.LastFailure); now.Before(until) {
		if err := s.record(ctx, username, ipAddress, now, false); err != nil {
			return nil, err
		}
		s.metrics.ObserveLogin("locked")
		s.logger.Warn("login throttled",
			zap.String("username", username),
			zap.String("ip", ipAddress),
			zap.Int("failures", streak.Failures),
			zap.Time("locked_until", until),
		)
		return nil, custom_error.ErrTooManyAttempts
	}

	var user *models.User
	if !overLong {
		user, err = s.users.GetUserByUsername(ctx, username)
	}
	var notFound *custom_error.NotFoundError
	switch {
	case overLong, errors.As(err, &notFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		user = nil
	case err != nil:
		return nil, err
	}

	ok := user != nil && bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
	if err := s.record(ctx, username, ipAddress, now, ok); err != nil {
		return nil, err
	}

	if !ok {
		s.metrics.ObserveLogin("failure")
		s.logger.Warn("failed login attempt", zap.String("username", username), zap.String("ip", ipAddress))
		return nil, custom_error.ErrInvalidCredentials
	}

	token, err := s.issuer.GenerateJWT(pkgsecurity.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role(),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveLogin("success")
	s.logger.Info("user logged in", zap.String("username", username), zap.String("ip", ipAddress))

	return &LoginResult{Token: token, ExpiresAt: now.Add(s.issuer.TTL()), User: *user}, nil
}

// truncateUsername cuts username to the column width so the attempt can
// still be recorded. The flag reports whether anything was cut.
func truncateUsername(username string) (string, bool) {
	if utf8.RuneCountInString(username) <= maxUsernameLength {
		return username, false
	}
	return string([]rune(username)[:maxUsernameLength]), true
}

func (s *AuthService) record(ctx context.Context, username, ipAddress string, at time.Time, successful bool) error {
	return s.attempts.InsertAttempt(ctx, &models.LoginAttempt{
		Username:    username,
		AttemptTime: at,
		IPAddress:   ipAddress,
		Successful:  successful,
	})
}

func (s *AuthService) GetAttempts(ctx context.Context, filter LoginAttemptFilter, page models.Page) (*models.PagedResult[models.LoginAttempt], error) {
	return s.attempts.GetAttempts(ctx, filter, page)
}

// ResetLockout lifts the lockout for username, or for everyone when it is
// empty.
func (s *AuthService) ResetLockout(ctx context.Context, username, resetBy string) error {
	username = strings.TrimSpace(username)
	if err := s.attempts.ResetLockout(ctx, username, resetBy); err != nil {
		return err
	}

	s.logger.Info("login lockout reset", zap.String("username", username), zap.String("reset_by", resetBy))
	return nil
}
