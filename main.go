package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/database"
	"github.com/camden-git/siteguard/handlers"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
	"github.com/camden-git/siteguard/parking"
	"github.com/camden-git/siteguard/plates"
	"github.com/camden-git/siteguard/realtime"
	"github.com/camden-git/siteguard/recognition"
	"github.com/camden-git/siteguard/repository"
	"github.com/camden-git/siteguard/services"
	"github.com/camden-git/siteguard/workers"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialise logger: %v", err)
	}
	defer appLog.Sync()

	storagePaths := []string{cfg.CapturesPath, cfg.DebugPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		appLog.Debug("ensuring storage directory exists", "path", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			appLog.Fatal("failed to create storage directory", "path", p, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitGormDB(cfg.DatabasePath, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize database", "error", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		appLog.Fatal("failed to migrate database", "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLog.Fatal("failed to get sql handle", "error", err)
	}
	defer sqlDB.Close()

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeCapture: filepath.Base(cfg.CapturesPath),
		media.AssetTypeDebug:   filepath.Base(cfg.DebugPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize media store", "error", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore, appLog)

	appLog.Info("starting detection pool", "workers", cfg.DetectionWorkers, "queue_size", cfg.DetectionQueueSize)
	pool := workers.NewDetectionPool(cfg.DetectionQueueSize, cfg.DetectionWorkers, appLog)

	// Pipelines whose models fail to load stay switched off; the server
	// still starts and the matching endpoints answer 503.
	extractor := recognition.NewExtractor(recognition.NewBackend(cfg.Face, appLog))
	defer extractor.Close()
	recognizer := plates.NewRecognizer(
		plates.NewLocator(plates.LocatorConfigFrom(cfg.Plate)),
		plates.NewReader(ctx, cfg.Plate, appLog),
	)
	analyzer := parking.NewAnalyzer(parking.ConfigFrom(cfg.Parking))

	hub := realtime.NewHub(appLog)
	go hub.Run(ctx)

	attendanceService := services.NewAttendanceService(
		extractor,
		repository.NewFaceEmbeddingRepository(db),
		repository.NewAttendanceRepository(db),
		mediaProcessor, pool, hub, cfg.Face.Tolerance, appLog,
	)
	accessService := services.NewAccessService(recognizer, repository.NewPlateRepository(db), mediaProcessor, pool, hub, appLog)
	parkingService := services.NewParkingService(analyzer, repository.NewParkingRepository(db), mediaProcessor, pool, hub, cfg.SaveDebugImages, appLog)
	attendanceService.SetMaxPixels(cfg.MaxPixels)
	accessService.SetMaxPixels(cfg.MaxPixels)
	parkingService.SetMaxPixels(cfg.MaxPixels)

	capabilities := handlers.Capabilities{
		Face:         attendanceService.Available(),
		FaceBackend:  extractor.BackendName(),
		PlateReader:  recognizer.Available(),
		ReaderName:   recognizer.ReaderName(),
		PlateLocator: true,
		Parking:      parkingService.Available(),
	}
	appLog.Info("capabilities", "face", capabilities.Face, "face_backend", capabilities.FaceBackend,
		"plate_reader", capabilities.ReaderName, "parking", capabilities.Parking)

	router := handlers.NewRouter(handlers.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      []byte(cfg.JWTSecret),
		JWTExpiration:  time.Duration(cfg.JWTExpirationHours) * time.Hour,
		MaxUploadBytes: int64(cfg.MaxUploadBytes),
		RequestTimeout: requestTimeout,
		Users:          repository.NewGormUserRepository(db),
		Attendance:     attendanceService,
		Access:         accessService,
		Parking:        parkingService,
		Reports:        services.NewReportService(sqlDB),
		Store:          mediaStore,
		Hub:            hub,
		Health:         &handlers.HealthHandler{Capabilities: capabilities, QueueStats: pool.Stats},
		Log:            appLog,
	})

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Server starting on http://localhost:%s\n", cfg.Port)
		appLog.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("graceful shutdown failed", "error", err)
	}
	pool.Stop()
}
