package container

import (
	"context"
	"database/sql"
	"fmt"

	activity "churchinventory/internal/auditlog"
	"churchinventory/internal/core/config"
	"churchinventory/internal/integrations/googlesheets"
	"churchinventory/internal/inventory/csvio"
	"churchinventory/internal/inventory/disposals"
	"churchinventory/internal/inventory/items"
	"churchinventory/internal/inventory/movements"
	"churchinventory/internal/inventory/stocks"
	"churchinventory/internal/locations"
	"churchinventory/internal/metrics"
	"churchinventory/internal/middleware"
	"churchinventory/internal/rate_limiter"
	"churchinventory/internal/repository"
	"churchinventory/internal/security"
	"churchinventory/internal/users"
	"churchinventory/pkg/auditlog"
	pkgsecurity "churchinventory/pkg/security"

	"go.uber.org/zap"
)

var Version = "dev"

type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Repository  *repository.Repository
	Metrics     *metrics.Metrics
	AuditLog    *auditlog.Auditlog
	TokenIssuer *pkgsecurity.TokenIssuer
	RateLimiter *rate_limiter.RateLimiter
	Health      *middleware.HealthChecker
	Activity    *activity.AuditLogRepository

	Stocks          *stocks.StockRepository
	LocationService *locations.LocationService
	ItemService     *items.ItemService
	MovementService *movements.MovementService
	DisposalService *disposals.DisposalService
	UserService     *users.UserService
	AuthService     *security.AuthService
	CSVImporter     *csvio.Importer
	CSVExporter     *csvio.Exporter
	SheetsExporter  *googlesheets.Exporter

	ActivityHandler *activity.ActivityHandler
	AuthHandler     *security.AuthHandler
	UserHandler     *users.UsersHandler
	LocationHandler *locations.LocationHandler
	ItemHandler     *items.ItemHandler
	StockHandler    *stocks.StockHandler
	MovementHandler *movements.MovementHandler
	DisposalHandler *disposals.DisposalHandler
	CSVHandler      *csvio.CSVHandler
	SheetsHandler   *googlesheets.GoogleSheetsHandler
}

func NewAppContainer(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo := repository.NewRepository(db)
	m := metrics.New()
	activityRepo := activity.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(logger).WithStore(activityRepo)

	issuer, err := pkgsecurity.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	stockRepo := stocks.NewRepository(repo)
	movementRepo := movements.NewRepository(repo)
	disposalRepo := disposals.NewRepository(repo)
	itemRepo := items.NewRepository(repo)
	locationRepo := locations.NewLocationRepository(repo)
	userRepo := users.NewRepository(repo)
	attemptRepo := security.NewLoginAttemptRepository(repo)

	movementService := movements.NewMovementService(repo, stockRepo, movementRepo, auditLog, m)
	disposalService := disposals.NewDisposalService(repo, stockRepo, disposalRepo, auditLog, m)
	locationService := locations.NewLocationService(repo, locationRepo, stockRepo, auditLog)
	itemService := items.NewItemService(repo, itemRepo, stockRepo, stockRepo, movementService, locationService, auditLog, m)
	userService := users.NewUserService(userRepo, auditLog)

	policy := security.LockoutPolicy{
		MaxFailures: cfg.LoginMaxFailures,
		Base:        cfg.LoginBackoffBase,
		Max:         cfg.LoginBackoffMax,
	}
	authService := security.NewAuthService(userRepo, attemptRepo, issuer, policy, m, logger)

	importer := csvio.NewImporter(repo, itemService, movementService, disposalService, locationService, auditLog, m, logger)
	exporter := csvio.NewExporter(itemService, movementService, disposalService)

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Repository:  repo,
		Metrics:     m,
		AuditLog:    auditLog,
		TokenIssuer: issuer,
		RateLimiter: rate_limiter.NewRateLimiter(cfg.LoginRateRPS, cfg.LoginRateBurst),
		Health:      middleware.NewHealthChecker(repo, Version),
		Activity:    activityRepo,

		Stocks:          stockRepo,
		LocationService: locationService,
		ItemService:     itemService,
		MovementService: movementService,
		DisposalService: disposalService,
		UserService:     userService,
		AuthService:     authService,
		CSVImporter:     importer,
		CSVExporter:     exporter,

		ActivityHandler: activity.NewActivityHandler(activityRepo, cfg.PerPage),
		AuthHandler:     security.NewAuthHandler(authService, cfg.PerPage),
		UserHandler:     users.NewHandler(userService, cfg.PerPage),
		LocationHandler: locations.NewLocationHandler(locationService, cfg.PerPage),
		ItemHandler:     items.NewItemHandler(itemService, cfg.PerPage),
		StockHandler:    stocks.NewStockHandler(stockRepo, cfg.PerPage),
		MovementHandler: movements.NewMovementHandler(movementService, cfg.PerPage),
		DisposalHandler: disposals.NewDisposalHandler(disposalService, cfg.PerPage),
		CSVHandler:      csvio.NewCSVHandler(importer, exporter),
	}

	if cfg.SheetsEnabled() {
		service, err := googlesheets.NewSheetsService(ctx, cfg.GoogleSheetsCredentialsJSON)
		if err != nil {
			logger.Warn("Google Sheets export disabled", zap.Error(err))
			return c, nil
		}
		c.SheetsExporter = googlesheets.NewExporter(
			googlesheets.NewValuesClient(service),
			exporter,
			cfg.GoogleSheetsSpreadsheetID,
			cfg.GoogleSheetsRange,
			logger,
		)
		c.SheetsHandler = googlesheets.NewGoogleSheetsHandler(c.SheetsExporter)
	}

	return c, nil
}
