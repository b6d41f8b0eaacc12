package security

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"churchinventory/internal/repository"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type LoginAttemptFilter struct {
	Username   string `form:"username"`
	IPAddress  string `form:"ip_address"`
	Successful *bool  `form:"successful"`
}

// FailureStreak is the run of failed attempts since the last success or
// administrative reset.
type FailureStreak struct {
	Failures    int
	LastFailure time.Time
}

type LoginAttemptRepository interface {
	InsertAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	FailureStreak(ctx context.Context, username, ipAddress string) (FailureStreak, error)
	GetAttempts(ctx context.Context, filter LoginAttemptFilter, page models.Page) (*models.PagedResult[models.LoginAttempt], error)
	ResetLockout(ctx context.Context, username, resetBy string) error
}

type loginAttemptRepository struct {
	repository *repository.Repository
}

func NewLoginAttemptRepository(r *repository.Repository) LoginAttemptRepository {
	return &loginAttemptRepository{repository: r}
}

func (r *loginAttemptRepository) InsertAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	query := r.repository.GoquDBWrapper.Insert("login_attempts").
		Rows(goqu.Record{
			"username":     attempt.Username,
			"attempt_time": attempt.AttemptTime,
			"ip_address":   attempt.IPAddress,
			"successful":   attempt.Successful,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &attempt.ID); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	return nil
}

func (r *loginAttemptRepository) FailureStreak(ctx context.Context, username, ipAddress string) (FailureStreak, error) {
	db := r.repository.GoquDBWrapper

	var lastSuccess sql.NullTime
	_, err := db.From("login_attempts").
		Select(goqu.MAX("attempt_time")).
		Where(goqu.Ex{"username": username, "ip_address": ipAddress, "successful": true}).
		ScanValContext(ctx, &lastSuccess)
	if err != nil {
		return FailureStreak{}, fmt.Errorf("failed to read last successful login: %w", err)
	}

	var lastReset sql.NullTime
	_, err = db.From("login_lockout_resets").
		Select(goqu.MAX("reset_time")).
		Where(goqu.Or(goqu.C("username").Eq(username), goqu.C("username").IsNull())).
		ScanValContext(ctx, &lastReset)
	if err != nil {
		return FailureStreak{}, fmt.Errorf("failed to read lockout resets: %w", err)
	}

	cutoff := lastSuccess.Time
	if lastReset.Valid && lastReset.Time.After(cutoff) {
		cutoff = lastReset.Time
	}

	failures := db.From("login_attempts").
		Where(goqu.Ex{"username": username, "ip_address": ipAddress, "successful": false})
	if !cutoff.IsZero() {
		failures = failures.Where(goqu.C("attempt_time").Gt(cutoff))
	}

	count, err := failures.CountContext(ctx)
	if err != nil {
		return FailureStreak{}, fmt.Errorf("failed to count failed logins: %w", err)
	}
	if count == 0 {
		return FailureStreak{}, nil
	}

	var lastFailure sql.NullTime
	if _, err := failures.Select(goqu.MAX("attempt_time")).ScanValContext(ctx, &lastFailure); err != nil {
		return FailureStreak{}, fmt.Errorf("failed to read last failed login: %w", err)
	}

	return FailureStreak{Failures: int(count), LastFailure: lastFailure.Time}, nil
}

func (r *loginAttemptRepository) GetAttempts(ctx context.Context, filter LoginAttemptFilter, page models.Page) (*models.PagedResult[models.LoginAttempt], error) {
	query := r.repository.GoquDBWrapper.From("login_attempts")

	ex := goqu.Ex{}
	if filter.Username != "" {
		ex["username"] = filter.Username
	}
	if filter.IPAddress != "" {
		ex["ip_address"] = filter.IPAddress
	}
	if filter.Successful != nil {
		ex["successful"] = *filter.Successful
	}
	if len(ex) > 0 {
		query = query.Where(ex)
	}

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count login attempts: %w", err)
	}

	attempts := []models.LoginAttempt{}
	err = query.Select("id", "username", "attempt_time", "ip_address", "successful").
		Order(goqu.C("attempt_time").Desc(), goqu.C("id").Desc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &attempts)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return &models.PagedResult[models.LoginAttempt]{
		Items:   attempts,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

// ResetLockout clears the failure streak of one username, or of everyone
// when username is empty. The attempt log itself is left untouched.
func (r *loginAttemptRepository) ResetLockout(ctx context.Context, username, resetBy string) error {
	record := goqu.Record{"reset_by": resetBy, "reset_time": time.Now().UTC()}
	if username != "" {
		record["username"] = username
	}

	_, err := r.repository.GoquDBWrapper.Insert("login_lockout_resets").
		Rows(record).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset login lockout: %w", err)
	}

	return nil
}
