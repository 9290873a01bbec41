package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/olivere/elastic/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locvowork/sheetwriter/internal/config"
	"github.com/locvowork/sheetwriter/internal/database"
	"github.com/locvowork/sheetwriter/internal/handler"
	"github.com/locvowork/sheetwriter/internal/logger"
	"github.com/locvowork/sheetwriter/internal/metrics"
	"github.com/locvowork/sheetwriter/internal/service"
	"github.com/locvowork/sheetwriter/pkg/googlecloud"
)

type App struct {
	Echo    *echo.Echo
	DB      *sql.DB
	GCP     *googlecloud.Client
	Elastic *elastic.Client
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	// Initialize logging
	logger.InitLogging(cfg.LOG_FILE_PATH)
	logger.SetLevel(cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	// Initialize database connection
	dbConfig := database.Config{
		Host:            cfg.DB_HOST,
		Port:            cfg.DB_PORT,
		User:            cfg.DB_USER,
		Password:        cfg.DB_PASSWORD,
		DBName:          cfg.DB_NAME,
		SSLMode:         cfg.DB_SSL_MODE,
		MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
		MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
		ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
	}

	db, err := database.NewPostgresDB(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	// Optional sources: profiles using them fail with 503 when missing
	if cfg.ELASTIC_URL != "" {
		es, err := elastic.NewClient(elastic.SetURL(cfg.ELASTIC_URL), elastic.SetSniff(false))
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize elastic client: %v", err)
		} else {
			a.Elastic = es
		}
	}
	if cfg.GCP_PROJECT_ID != "" {
		gcpClient, err := googlecloud.NewClient(ctx, cfg.GCP_PROJECT_ID)
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize GCP client: %v", err)
		} else {
			a.GCP = gcpClient
			logger.InfoLog(ctx, "datastore exports enabled for project %s", gcpClient.ProjectID())
		}
	}

	// Initialize dependencies
	exportSvc := service.NewExportService(cfg.PROFILE_DIR, service.Sources{
		DB:        a.DB,
		Elastic:   a.Elastic,
		Datastore: a.GCP,
	}, metrics.NewMetrics(prometheus.DefaultRegisterer))
	exportHandler := handler.NewExportHandler(exportSvc)

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(exportHandler)

	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

func (a *App) RegisterRoutes(exportHandler *handler.ExportHandler) {
	a.Echo.GET("/healthz", exportHandler.HealthHandler)
	a.Echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	exportGroup := a.Echo.Group("/export")
	exportGroup.GET("/:profile", exportHandler.DownloadHandler)
}

func (a *App) Run() error {
	defer a.DB.Close()
	if a.GCP != nil {
		defer a.GCP.Close()
	}
	if a.Elastic != nil {
		defer a.Elastic.Stop()
	}
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
