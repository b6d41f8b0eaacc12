package cmd

import (
	"errors"
	"fmt"
	"strings"

	activity "churchinventory/internal/auditlog"
	"churchinventory/internal/core/container"
	"churchinventory/internal/repository"
	"churchinventory/internal/security"
	"churchinventory/internal/users"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	pkgsecurity "churchinventory/pkg/security"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const cliActor = "cli"

// CreateAdminCmd seeds the first administrator. An existing username is not
// an error so the command can run on every deploy.
var CreateAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if username == "" {
			username = cfg.AdminUsername
		}
		if password == "" {
			password = cfg.AdminPassword
		}
		if username == "" || password == "" {
			return fmt.Errorf("username and password are required (flags or ADMIN_USERNAME / ADMIN_PASSWORD)")
		}

		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewRepository(db)
		auditLog := auditlog.NewAuditLog(log).WithStore(activity.NewRepository(repo))
		service := users.NewUserService(users.NewRepository(repo), auditLog)
		user, err := service.CreateUser(cmd.Context(), pkgsecurity.Identity{Username: cliActor}, models.CreateUserRequest{
			Username:        username,
			Password:        password,
			ConfirmPassword: password,
			IsAdmin:         true,
		})
		if err != nil {
			var conflictErr *custom_error.UniqueViolationError
			if errors.As(err, &conflictErr) {
				log.Info("Admin already exists", zap.String("username", strings.TrimSpace(username)))
				return nil
			}
			return err
		}

		log.Info("Admin created", zap.Int("user_id", user.ID), zap.String("username", user.Username))
		return nil
	},
}

var ResetLoginAttemptsCmd = &cobra.Command{
	Use:   "reset-login-attempts",
	Short: "Lift login lockouts for one username or for everyone.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		username, _ := cmd.Flags().GetString("username")
		username = strings.TrimSpace(username)

		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		attempts := security.NewLoginAttemptRepository(repository.NewRepository(db))
		if err := attempts.ResetLockout(cmd.Context(), username, cliActor); err != nil {
			return err
		}

		if username == "" {
			log.Info("Login lockouts lifted for all users")
		} else {
			log.Info("Login lockout lifted", zap.String("username", username))
		}
		return nil
	},
}

var ExportSheetsCmd = &cobra.Command{
	Use:   "export-sheets",
	Short: "Push the current inventory to the configured Google spreadsheet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if !cfg.SheetsEnabled() {
			return fmt.Errorf("GOOGLE_SHEETS_CREDENTIALS_JSON and GOOGLE_SHEETS_SPREADSHEET_ID must be set")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		app, err := container.NewAppContainer(cmd.Context(), cfg, db, log)
		if err != nil {
			return err
		}
		if app.SheetsExporter == nil {
			return fmt.Errorf("google sheets client could not be created")
		}

		result, err := app.SheetsExporter.ExportInventory(cmd.Context())
		if err != nil {
			return err
		}

		log.Info("Inventory exported to Google Sheets",
			zap.String("range", result.Range),
			zap.Int("rows", result.Rows),
			zap.Int64("updated_cells", result.UpdatedCells),
		)
		return nil
	},
}
