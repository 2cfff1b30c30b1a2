package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"karvia/api"
	"karvia/config"
	"karvia/database"
	"karvia/logger"
	"karvia/metrics"
	"karvia/middleware"
	"karvia/repository"
	"karvia/services"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "karvia",
	Short: "Readiness scoring and staged goal program service",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, base, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = base.Sync() }()

		db, err := database.Open(cfg.Database.DSN, base)
		if err != nil {
			return err
		}
		return database.Migrate(db, base)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: ./config/config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	base, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, base, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, base, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = base.Sync() }()
	log := logger.Component(base, "Main")

	db, err := database.Open(cfg.Database.DSN, base)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, base); err != nil {
		return err
	}

	m := metrics.Default()
	handler, err := buildHandler(cfg, db, base, m)
	if err != nil {
		log.Errorf("Failed to wire services: %v", err)
		return err
	}
	log.Infof("Services initialized.")

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger.Component(base, "HTTP")))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Cors())
	handler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	log.Infof("Routes registered.")

	serverPort := ":" + cfg.Server.Port
	if cfg.Server.Port == "" {
		log.Warnf("Server port not configured, using default :8080.")
		serverPort = ":8080"
	}
	log.Infof("Starting server on port %s", serverPort)
	if err := r.Run(serverPort); err != nil {
		log.Errorf("Server failed to start: %v", err)
		return err
	}
	return nil
}

// buildHandler wires repositories, engines and services from configuration.
func buildHandler(cfg *config.Config, db *gorm.DB, base *zap.Logger, m *metrics.Metrics) (*api.APIHandler, error) {
	journeyRepo := repository.NewJourneyRepository(db, logger.Component(base, "JourneyRepository"))
	planRepo := repository.NewPlanRepository(db, logger.Component(base, "PlanRepository"))
	assessmentRepo := repository.NewAssessmentRepository(db, logger.Component(base, "AssessmentRepository"))

	catalog, err := config.NewStageCatalog(config.DefaultStageDefinitions(), cfg.Stages)
	if err != nil {
		return nil, err
	}
	weights, err := config.NewDimensionWeights(config.DefaultDimensionWeights(), cfg.Scoring.DimensionWeights)
	if err != nil {
		return nil, err
	}
	registry, err := services.NewRequirementRegistry(catalog, services.BuiltinRequirementCheckers(assessmentRepo, journeyRepo))
	if err != nil {
		return nil, err
	}

	var generator services.ContentGenerator
	if cfg.ContentGeneration.Enabled {
		generator = services.NewOpenAIContentGenerator(cfg.ContentGeneration, logger.Component(base, "ContentGenerator"))
	} else {
		logger.Component(base, "Main").Infof("Content generation disabled; stages use fallback templates.")
	}

	progressionLog := logger.Component(base, "ProgressionService")
	scorer := services.NewReadinessScoringEngine(services.NewTextSignalAnalyzer(config.DefaultMarkerVocabulary()), weights)
	progression := services.NewProgressionService(services.ProgressionDeps{
		Journeys:           journeyRepo,
		Plans:              planRepo,
		Assessments:        assessmentRepo,
		Catalog:            catalog,
		Requirements:       registry,
		Generator:          generator,
		Analyzer:           services.NewPatternAnalyzer(cfg.Progression.TrailingWindow),
		Adapter:            services.NewAdaptationEngine(logger.Component(base, "AdaptationEngine"), m),
		GenerationTimeout:  time.Duration(cfg.ContentGeneration.TimeoutSeconds) * time.Second,
		MaxConflictRetries: cfg.Progression.MaxConflictRetries,
		Log:                progressionLog,
		Metrics:            m,
	})

	return api.NewAPIHandler(
		services.NewAssessmentService(assessmentRepo, scorer, m, logger.Component(base, "AssessmentService")),
		progression,
		services.NewPlanService(planRepo, journeyRepo, progression, logger.Component(base, "PlanService")),
		services.NewProgressService(planRepo, journeyRepo, catalog, logger.Component(base, "ProgressService")),
		logger.Component(base, "API"),
	), nil
}
