package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/kaanyildiz/hwboard/internal/app/controllers"
	appRepos "github.com/kaanyildiz/hwboard/internal/app/repositories"
	appRoutes "github.com/kaanyildiz/hwboard/internal/app/routes"
	appServices "github.com/kaanyildiz/hwboard/internal/app/services"
	"github.com/kaanyildiz/hwboard/internal/config"
	"github.com/kaanyildiz/hwboard/internal/db"
	appMiddleware "github.com/kaanyildiz/hwboard/internal/middleware"
	"github.com/kaanyildiz/hwboard/internal/pkg/filestorage"
	"github.com/kaanyildiz/hwboard/internal/pkg/logger"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	HomeworkRepo       *appRepos.HomeworkRepository
	HomeworkService    appServices.HomeworkService
	HomeworkController *appControllers.HomeworkController
	FileStorage        *filestorage.LocalStorage
	Logger             zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	// A local .env can override the environment during development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
		File:   cfg.Logging.File,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the sqlite datastore and ensures the schema exists.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.SQLite, error) {
	lgr.Info().Str("path", cfg.Database.Path).Msg("Opening datastore...")
	database, err := db.NewSQLite(cfg.Database.Path)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to open database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := appRepos.NewHomeworkRepository(database).InitSchema(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize schema")
		_ = database.Close()
		return nil, err
	}

	lgr.Info().Msg("Datastore ready.")
	return database, nil
}

// BuildDependencies wires repositories, services and controllers together.
func BuildDependencies(cfg *config.Config, database *db.SQLite, lgr zerolog.Logger) (*Dependencies, error) {
	fileStorage, err := filestorage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, err
	}
	lgr.Info().Str("path", cfg.Storage.UploadDir).Msg("Upload directory ensured")

	homeworkRepo := appRepos.NewHomeworkRepository(database)
	homeworkService := appServices.NewHomeworkService(homeworkRepo, fileStorage)
	homeworkController := appControllers.NewHomeworkController(homeworkService)

	return &Dependencies{
		HomeworkRepo:       homeworkRepo,
		HomeworkService:    homeworkService,
		HomeworkController: homeworkController,
		FileStorage:        fileStorage,
		Logger:             lgr,
	}, nil
}

// SetupRouter builds the gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" || strings.ToLower(cfg.Server.Mode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger())
	router.Use(cors.Default())
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	appRoutes.SetupRouter(router, deps.HomeworkController)

	lgr.Info().Msg("Router configured")
	return router
}
