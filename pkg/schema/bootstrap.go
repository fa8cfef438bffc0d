// Package schema creates each domain's tables and seed rows at process start.
package schema

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/config"
	"github.com/desa-digital/portal-engine/pkg/logging"
	"github.com/desa-digital/portal-engine/pkg/retry"
)

// RoleAdmin is the users.role value of administrative accounts.
const RoleAdmin = "admin"

// Bootstrapper runs idempotent DDL and seeds for a domain.
// Every statement is safe to repeat, so Ensure runs on every start.
type Bootstrapper struct {
	seed   config.SeedConfig
	retry  *retry.Config
	cost   int
	logger *zap.Logger
}

// NewBootstrapper creates a Bootstrapper. retryCfg may be nil.
func NewBootstrapper(seed config.SeedConfig, retryCfg *retry.Config, logger *zap.Logger) *Bootstrapper {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &Bootstrapper{
		seed:   seed,
		retry:  retryCfg,
		cost:   bcrypt.DefaultCost,
		logger: logger.Named("schema"),
	}
}

// Ensure creates the domain's tables on h and, for the main domain, makes sure an
// administrative account exists. Failures are *apperrors.BootstrapError.
func (b *Bootstrapper) Ensure(ctx context.Context, domain string, h datasource.Handle) error {
	dialect, err := DialectFor(h.Engine())
	if err != nil {
		return &apperrors.BootstrapError{Domain: domain, Step: "select dialect", Err: err}
	}

	tables := Tables(domain)
	if tables == nil {
		return &apperrors.BootstrapError{Domain: domain, Step: "list tables", Err: fmt.Errorf("%w: %q", apperrors.ErrUnknownDomain, domain)}
	}

	for _, t := range tables {
		stmt := dialect.CreateTable(t)
		err := retry.DoIfRetryable(ctx, b.retry, func() error {
			_, err := h.Execute(ctx, stmt, nil)
			return err
		})
		if err != nil {
			b.logger.Error("Failed to create table",
				zap.String("domain", domain),
				zap.String("table", t.Name),
				zap.String("error", logging.SanitizeError(err)))
			return &apperrors.BootstrapError{Domain: domain, Step: "create table " + t.Name, Err: err}
		}
	}

	if domain == config.DomainMain {
		if err := b.seedAdmin(ctx, h); err != nil {
			return &apperrors.BootstrapError{Domain: domain, Step: "seed admin", Err: err}
		}
	}

	b.logger.Info("Schema ready", zap.String("domain", domain), zap.Int("tables", len(tables)))
	return nil
}

// seedAdmin inserts the configured admin account when no admin row exists.
func (b *Bootstrapper) seedAdmin(ctx context.Context, h datasource.Handle) error {
	admins, err := CountAdmins(ctx, h)
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}

	password := b.seed.AdminPassword
	generated := password == ""
	if generated {
		if password, err = randomPassword(); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = h.Execute(ctx,
		"INSERT INTO users (username, password_hash, full_name, role) VALUES (?, ?, ?, ?)",
		[]any{b.seed.AdminUsername, string(hash), b.seed.AdminFullName, RoleAdmin})
	if err != nil {
		return fmt.Errorf("insert admin %q: %w", b.seed.AdminUsername, err)
	}

	b.logger.Info("Seeded admin account", zap.String("username", b.seed.AdminUsername))
	if generated {
		b.logger.Warn("ADMIN_SEED_PASSWORD not set, admin account has a random password; set it through PUT /api/users/{id}",
			zap.String("username", b.seed.AdminUsername))
	}
	return nil
}

// CountAdmins returns the number of users with the admin role.
func CountAdmins(ctx context.Context, h datasource.Handle) (int64, error) {
	result, err := h.Execute(ctx, "SELECT COUNT(*) AS admin_count FROM users WHERE role = ?", []any{RoleAdmin})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	if len(result.Rows) == 0 {
		return 0, nil
	}
	n, ok := datasource.AsInt64(result.Rows[0]["admin_count"])
	if !ok {
		return 0, fmt.Errorf("count admins: unexpected value %T", result.Rows[0]["admin_count"])
	}
	return n, nil
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate admin password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
