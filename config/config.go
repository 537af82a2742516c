package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCapturesSubDir = "captures"
	DefaultDebugSubDir    = "debug"
)

const (
	FaceBackendDNN  = "dnn"
	FaceBackendDlib = "dlib"
	FaceBackendStub = "stub"

	FaceDetectorFast     = "fast"
	FaceDetectorAccurate = "accurate"

	PlateReaderRekognition = "rekognition"
	PlateReaderStub        = "stub"

	OverflowUnknown = "unknown"
	OverflowExpand  = "expand"
)

const (
	defaultPort               = "8080"
	defaultDetectionQueueSize = 64
	defaultDetectionWorkers   = 4
	defaultMaxUploadBytes     = 10 << 20
	defaultMaxPixels          = 40_000_000
	defaultJWTExpirationHours = 24
	defaultFaceTolerance      = 0.6
	defaultPlateMinAspect     = 1.5
	defaultPlateMaxAspect     = 5.0
	defaultPlateMaxContours   = 10
	defaultPlateMinDimension  = 8
	defaultOccupancyThreshold = 0.15
)

type Config struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogMode        string   `yaml:"log_mode"`
	MaxUploadBytes int      `yaml:"max_upload_bytes"`
	MaxPixels      int      `yaml:"max_pixels"` // decoded frame size limit

	// database path
	DatabasePath string `yaml:"database_path"`

	// media storage configuration
	MediaStoragePath string `yaml:"media_storage_path"` // root for stored captures
	CapturesPath     string `yaml:"-"`                  // full-calculated path for captures
	DebugPath        string `yaml:"-"`                  // full-calculated path for debug overlays
	SaveDebugImages  bool   `yaml:"save_debug_images"`

	JWTSecret          string `yaml:"jwt_secret"`
	JWTExpirationHours int    `yaml:"jwt_expiration_hours"`

	// worker settings
	DetectionQueueSize int `yaml:"detection_queue_size"`
	DetectionWorkers   int `yaml:"detection_workers"`

	Face    FaceConfig    `yaml:"face"`
	Plate   PlateConfig   `yaml:"plate"`
	Parking ParkingConfig `yaml:"parking"`
}

type FaceConfig struct {
	Backend   string  `yaml:"backend"`
	Detector  string  `yaml:"detector"`
	Tolerance float64 `yaml:"tolerance"`

	// gocv models
	CascadePath        string `yaml:"cascade_path"`
	DNNNetConfigPath   string `yaml:"dnn_config_path"`
	DNNNetModelPath    string `yaml:"dnn_model_path"`
	EmbeddingModelPath string `yaml:"embedding_model_path"`

	// go-face (dlib) model directory
	DlibModelsDir string `yaml:"dlib_models_dir"`
}

type PlateConfig struct {
	Reader       string  `yaml:"reader"`
	AWSRegion    string  `yaml:"aws_region"`
	Pattern      string  `yaml:"pattern"`
	MinAspect    float64 `yaml:"min_aspect"`
	MaxAspect    float64 `yaml:"max_aspect"`
	MaxContours  int     `yaml:"max_contours"`
	MinDimension int     `yaml:"min_dimension"`
}

type ParkingConfig struct {
	OccupancyThreshold float64 `yaml:"occupancy_threshold"`
	GridColumns        int     `yaml:"grid_columns"`
	GridRows           int     `yaml:"grid_rows"`
	OverflowPolicy     string  `yaml:"overflow_policy"`
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// defaults returns the built-in configuration before any file or env override.
func defaults() Config {
	return Config{
		Port:               defaultPort,
		AllowedOrigins:     []string{"http://localhost:5173"},
		LogMode:            "development",
		MaxUploadBytes:     defaultMaxUploadBytes,
		MaxPixels:          defaultMaxPixels,
		DatabasePath:       "siteguard.db",
		MediaStoragePath:   filepath.Join(".", "media_storage"),
		JWTExpirationHours: defaultJWTExpirationHours,
		DetectionQueueSize: defaultDetectionQueueSize,
		DetectionWorkers:   defaultDetectionWorkers,
		Face: FaceConfig{
			Backend:            FaceBackendDNN,
			Detector:           FaceDetectorFast,
			Tolerance:          defaultFaceTolerance,
			CascadePath:        "./models/haarcascade_frontalface_default.xml",
			DNNNetConfigPath:   "./models/deploy.prototxt.txt",
			DNNNetModelPath:    "./models/res10_300x300_ssd_iter_140000_fp16.caffemodel",
			EmbeddingModelPath: "./models/nn4.small2.v1.t7",
			DlibModelsDir:      "./models/dlib",
		},
		Plate: PlateConfig{
			Reader:       PlateReaderStub,
			Pattern:      `^[A-Z0-9]{1,4}-?[A-Z0-9]{2,5}$`,
			MinAspect:    defaultPlateMinAspect,
			MaxAspect:    defaultPlateMaxAspect,
			MaxContours:  defaultPlateMaxContours,
			MinDimension: defaultPlateMinDimension,
		},
		Parking: ParkingConfig{
			OccupancyThreshold: defaultOccupancyThreshold,
			OverflowPolicy:     OverflowUnknown,
		},
	}
}

// loadFile overlays a YAML file onto cfg. Zero values in the file keep the
// current value.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file '%s': %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file '%s': %w", path, err)
	}

	cfg.Port = orString(file.Port, cfg.Port)
	if len(file.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	cfg.LogMode = orString(file.LogMode, cfg.LogMode)
	cfg.MaxUploadBytes = orInt(file.MaxUploadBytes, cfg.MaxUploadBytes)
	cfg.MaxPixels = orInt(file.MaxPixels, cfg.MaxPixels)
	cfg.DatabasePath = orString(file.DatabasePath, cfg.DatabasePath)
	cfg.MediaStoragePath = orString(file.MediaStoragePath, cfg.MediaStoragePath)
	cfg.SaveDebugImages = file.SaveDebugImages || cfg.SaveDebugImages
	cfg.JWTSecret = orString(file.JWTSecret, cfg.JWTSecret)
	cfg.JWTExpirationHours = orInt(file.JWTExpirationHours, cfg.JWTExpirationHours)
	cfg.DetectionQueueSize = orInt(file.DetectionQueueSize, cfg.DetectionQueueSize)
	cfg.DetectionWorkers = orInt(file.DetectionWorkers, cfg.DetectionWorkers)

	cfg.Face.Backend = orString(file.Face.Backend, cfg.Face.Backend)
	cfg.Face.Detector = orString(file.Face.Detector, cfg.Face.Detector)
	cfg.Face.Tolerance = orFloat(file.Face.Tolerance, cfg.Face.Tolerance)
	cfg.Face.CascadePath = orString(file.Face.CascadePath, cfg.Face.CascadePath)
	cfg.Face.DNNNetConfigPath = orString(file.Face.DNNNetConfigPath, cfg.Face.DNNNetConfigPath)
	cfg.Face.DNNNetModelPath = orString(file.Face.DNNNetModelPath, cfg.Face.DNNNetModelPath)
	cfg.Face.EmbeddingModelPath = orString(file.Face.EmbeddingModelPath, cfg.Face.EmbeddingModelPath)
	cfg.Face.DlibModelsDir = orString(file.Face.DlibModelsDir, cfg.Face.DlibModelsDir)

	cfg.Plate.Reader = orString(file.Plate.Reader, cfg.Plate.Reader)
	cfg.Plate.AWSRegion = orString(file.Plate.AWSRegion, cfg.Plate.AWSRegion)
	cfg.Plate.Pattern = orString(file.Plate.Pattern, cfg.Plate.Pattern)
	cfg.Plate.MinAspect = orFloat(file.Plate.MinAspect, cfg.Plate.MinAspect)
	cfg.Plate.MaxAspect = orFloat(file.Plate.MaxAspect, cfg.Plate.MaxAspect)
	cfg.Plate.MaxContours = orInt(file.Plate.MaxContours, cfg.Plate.MaxContours)
	cfg.Plate.MinDimension = orInt(file.Plate.MinDimension, cfg.Plate.MinDimension)

	cfg.Parking.OccupancyThreshold = orFloat(file.Parking.OccupancyThreshold, cfg.Parking.OccupancyThreshold)
	cfg.Parking.GridColumns = orInt(file.Parking.GridColumns, cfg.Parking.GridColumns)
	cfg.Parking.GridRows = orInt(file.Parking.GridRows, cfg.Parking.GridRows)
	cfg.Parking.OverflowPolicy = orString(file.Parking.OverflowPolicy, cfg.Parking.OverflowPolicy)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	cfg.LogMode = getEnvOrDefault("LOG_MODE", cfg.LogMode)
	cfg.MaxUploadBytes = getEnvIntOrDefault("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxPixels = getEnvIntOrDefault("MAX_PIXELS", cfg.MaxPixels)
	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", cfg.DatabasePath)
	cfg.MediaStoragePath = getEnvOrDefault("MEDIA_STORAGE_PATH", cfg.MediaStoragePath)
	cfg.SaveDebugImages = getEnvBoolOrDefault("SAVE_DEBUG_IMAGES", cfg.SaveDebugImages)
	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpirationHours = getEnvIntOrDefault("JWT_EXPIRATION_HOURS", cfg.JWTExpirationHours)
	cfg.DetectionQueueSize = getEnvIntOrDefault("DETECTION_QUEUE_SIZE", cfg.DetectionQueueSize)
	cfg.DetectionWorkers = getEnvIntOrDefault("DETECTION_WORKERS", cfg.DetectionWorkers)

	cfg.Face.Backend = getEnvOrDefault("FACE_BACKEND", cfg.Face.Backend)
	cfg.Face.Detector = getEnvOrDefault("FACE_DETECTOR", cfg.Face.Detector)
	cfg.Face.Tolerance = getEnvFloatOrDefault("FACE_TOLERANCE", cfg.Face.Tolerance)
	cfg.Face.CascadePath = getEnvOrDefault("FACE_CASCADE_PATH", cfg.Face.CascadePath)
	cfg.Face.DNNNetConfigPath = getEnvOrDefault("FACE_DNN_CONFIG_PATH", cfg.Face.DNNNetConfigPath)
	cfg.Face.DNNNetModelPath = getEnvOrDefault("FACE_DNN_MODEL_PATH", cfg.Face.DNNNetModelPath)
	cfg.Face.EmbeddingModelPath = getEnvOrDefault("FACE_EMBEDDING_MODEL_PATH", cfg.Face.EmbeddingModelPath)
	cfg.Face.DlibModelsDir = getEnvOrDefault("FACE_DLIB_MODELS_DIR", cfg.Face.DlibModelsDir)

	cfg.Plate.Reader = getEnvOrDefault("PLATE_READER", cfg.Plate.Reader)
	cfg.Plate.AWSRegion = getEnvOrDefault("AWS_REGION", cfg.Plate.AWSRegion)
	cfg.Plate.Pattern = getEnvOrDefault("PLATE_PATTERN", cfg.Plate.Pattern)
	cfg.Plate.MinAspect = getEnvFloatOrDefault("PLATE_MIN_ASPECT", cfg.Plate.MinAspect)
	cfg.Plate.MaxAspect = getEnvFloatOrDefault("PLATE_MAX_ASPECT", cfg.Plate.MaxAspect)
	cfg.Plate.MaxContours = getEnvIntOrDefault("PLATE_MAX_CONTOURS", cfg.Plate.MaxContours)
	cfg.Plate.MinDimension = getEnvIntOrDefault("PLATE_MIN_DIMENSION", cfg.Plate.MinDimension)

	cfg.Parking.OccupancyThreshold = getEnvFloatOrDefault("OCCUPANCY_THRESHOLD", cfg.Parking.OccupancyThreshold)
	cfg.Parking.GridColumns = getEnvIntOrDefault("PARKING_GRID_COLUMNS", cfg.Parking.GridColumns)
	cfg.Parking.GridRows = getEnvIntOrDefault("PARKING_GRID_ROWS", cfg.Parking.GridRows)
	cfg.Parking.OverflowPolicy = getEnvOrDefault("PARKING_OVERFLOW_POLICY", cfg.Parking.OverflowPolicy)
}

func LoadConfig() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("SITEGUARD_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	absMediaStorage, err := filepath.Abs(cfg.MediaStoragePath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", cfg.MediaStoragePath, err)
	}
	cfg.MediaStoragePath = absMediaStorage
	cfg.CapturesPath = filepath.Join(absMediaStorage, DefaultCapturesSubDir)
	cfg.DebugPath = filepath.Join(absMediaStorage, DefaultDebugSubDir)

	if cfg.JWTSecret == "" {
		log.Printf("Warning: JWT_SECRET is not set, using an insecure development secret")
		cfg.JWTSecret = "siteguard-development-secret"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipelines cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("max pixels must be positive, got %d", c.MaxPixels))
	}
	switch c.Face.Backend {
	case FaceBackendDNN, FaceBackendDlib, FaceBackendStub:
	default:
		errs = append(errs, fmt.Errorf("unknown face backend '%s'", c.Face.Backend))
	}
	switch c.Face.Detector {
	case FaceDetectorFast, FaceDetectorAccurate:
	default:
		errs = append(errs, fmt.Errorf("unknown face detector '%s'", c.Face.Detector))
	}
	if c.Face.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("face tolerance must be positive, got %g", c.Face.Tolerance))
	}
	switch c.Plate.Reader {
	case PlateReaderRekognition, PlateReaderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown plate reader '%s'", c.Plate.Reader))
	}
	if c.Plate.MinAspect <= 0 || c.Plate.MinAspect > c.Plate.MaxAspect {
		errs = append(errs, fmt.Errorf("plate aspect range [%g, %g] is invalid", c.Plate.MinAspect, c.Plate.MaxAspect))
	}
	if c.Plate.MaxContours <= 0 {
		errs = append(errs, fmt.Errorf("plate max contours must be positive"))
	}
	if c.Parking.OccupancyThreshold <= 0 || c.Parking.OccupancyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("occupancy threshold must be in (0,1), got %g", c.Parking.OccupancyThreshold))
	}
	switch c.Parking.OverflowPolicy {
	case OverflowUnknown, OverflowExpand:
	default:
		errs = append(errs, fmt.Errorf("unknown parking overflow policy '%s'", c.Parking.OverflowPolicy))
	}
	return errors.Join(errs...)
}
