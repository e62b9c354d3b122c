package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"greenbite/internal/api/handlers"
	"greenbite/internal/api/routes"
	"greenbite/internal/middleware"
	"greenbite/internal/utils"
	"greenbite/internal/utils/mailing"
	"greenbite/internal/utils/storage"
	"greenbite/pkg/alert"
	"greenbite/pkg/camera"
	"greenbite/pkg/detection"
	"greenbite/pkg/extraction"
	"greenbite/pkg/food"
	"greenbite/pkg/inventory"
	"greenbite/pkg/jwt"
	"greenbite/pkg/user"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// Services is the wired application graph shared by the API server and the
// CLI commands.
type Services struct {
	Validator   *validator.Validate
	JWTService  jwt.JWTService
	UserService user.UserService
	Store       inventory.InventoryStore
	FoodService food.FoodService
	// Sweeper is nil when SMTP is not configured.
	Sweeper *alert.Sweeper
	// Listener is nil unless PG_NOTIFY is enabled.
	Listener *inventory.PgListener

	closers []func() error
}

func NewServices(ctx context.Context, db *gorm.DB) (*Services, error) {
	utils.InitValidator()
	s := &Services{Validator: utils.Validate}

	// utils
	s3, err := storage.NewAwsS3(ctx)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		log.Info("frame archive disabled: AWS_S3_BUCKET not set")
	case err != nil:
		return nil, err
	}

	detector, err := newDetector(ctx, s)
	if err != nil {
		return nil, err
	}
	extractor := extraction.NewClient(utils.GetConfig("EXTRACTION_URL"))

	// Repository
	userRepository := user.NewUserRepository(db)
	inventoryRepository := inventory.NewInventoryRepository(db)

	// Service
	hub := inventory.NewHub(inventoryRepository.GetFoodItems)
	var broadcaster inventory.Broadcaster = hub
	if utils.GetBoolConfig("PG_NOTIFY") {
		broadcaster = inventory.NewPgBroadcaster(db)
		s.Listener = inventory.NewPgListener(utils.DatabaseDSN(), hub)
	}

	s.JWTService = jwt.NewJWTService()
	s.UserService = user.NewUserService(userRepository)
	s.Store = inventory.NewInventoryStore(inventoryRepository, hub, broadcaster)
	s.FoodService = food.NewFoodService(s.Store, detector, extractor, s3, s.Validator)

	mailConfig := mailing.LoadMailConfig()
	if mailConfig.Configured() {
		s.Sweeper = alert.NewSweeper(s.Store, s.UserService, mailing.NewMailer(mailConfig))
	} else {
		log.Info("expiry alerts disabled: SMTP settings missing")
	}

	return s, nil
}

func newDetector(ctx context.Context, s *Services) (detection.Detector, error) {
	switch backend := utils.GetConfig("DETECTION_BACKEND"); backend {
	case "gemini":
		gemini, err := detection.NewGeminiDetector(ctx, utils.GetConfig("GEMINI_API_KEY"), utils.GetConfig("GEMINI_MODEL"))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, gemini.Close)
		return gemini, nil
	case "http":
		return detection.NewClient(utils.GetConfig("DETECTION_URL")), nil
	default:
		return nil, fmt.Errorf("unknown DETECTION_BACKEND %q", backend)
	}
}

func (s *Services) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Warnf("close: %v", err)
		}
	}
}

// NewMediaDevices picks the camera backend from CAMERA_DEVICE.
func NewMediaDevices() (camera.MediaDevices, error) {
	switch device := utils.GetConfig("CAMERA_DEVICE"); device {
	case "snapshot":
		path := utils.GetConfig("CAMERA_SNAPSHOT_PATH")
		if path == "" {
			return nil, errors.New("CAMERA_SNAPSHOT_PATH is required for the snapshot camera")
		}
		return camera.NewSnapshotDevices(path), nil
	case "synthetic":
		return camera.NewSyntheticDevices(), nil
	default:
		return nil, fmt.Errorf("unknown CAMERA_DEVICE %q", device)
	}
}

func NewApp(s *Services) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware(s.UserService)

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("error creating logs directory: %w", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	s.closers = append(s.closers, file.Close)

	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// Handler
	foodHandler := handlers.NewFoodHandler(s.FoodService, s.Validator)
	draftHandler := handlers.NewDraftHandler(s.FoodService, s.Validator)

	// routes
	routesConfig := routes.Config{
		App:          app,
		FoodHandler:  foodHandler,
		DraftHandler: draftHandler,
		Middleware:   middlewares,
		JWTService:   s.JWTService,
	}
	routesConfig.Setup()
	return app, nil
}
