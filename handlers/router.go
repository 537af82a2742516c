package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
	"github.com/camden-git/siteguard/permissions"
	"github.com/camden-git/siteguard/realtime"
	"github.com/camden-git/siteguard/repository"
	"github.com/camden-git/siteguard/services"
)

// RouterConfig carries everything the HTTP layer needs.
type RouterConfig struct {
	AllowedOrigins []string
	JWTSecret      []byte
	JWTExpiration  time.Duration
	MaxUploadBytes int64
	RequestTimeout time.Duration

	Users      repository.UserRepository
	Attendance *services.AttendanceService
	Access     *services.AccessService
	Parking    *services.ParkingService
	Reports    *services.ReportService
	Store      media.Store
	Hub        *realtime.Hub
	Health     *HealthHandler
	Log        *logger.Logger
}

func requirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequirePermission(permission, next)
	}
}

// NewRouter builds the API router.
func NewRouter(c RouterConfig) chi.Router {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}

	authHandler := NewAuthHandler(c.Users, c.JWTSecret, c.JWTExpiration, c.Log)
	attendanceHandler := &AttendanceHandler{Service: c.Attendance, MaxUploadBytes: c.MaxUploadBytes, Log: c.Log}
	plateHandler := &PlateHandler{Service: c.Access, MaxUploadBytes: c.MaxUploadBytes, Log: c.Log}
	parkingHandler := &ParkingHandler{Service: c.Parking, MaxUploadBytes: c.MaxUploadBytes, Log: c.Log}
	reportHandler := &ReportHandler{Service: c.Reports, Log: c.Log}

	authenticate := func(next http.Handler) http.Handler {
		return AuthMiddleware(c.Users, c.JWTSecret, next)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(c.Log))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)
	r.Use(Metrics)

	r.Handle("/metrics", promhttp.Handler())

	if c.Hub != nil {
		r.With(authenticate).Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			c.Hub.ServeWS(w, r, UserFromContext(r.Context()).OrganizationID)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(c.RequestTimeout))

		if c.Health != nil {
			r.Get("/health", c.Health.Health)
		}
		r.Get("/permissions", ListPermissionDefinitions)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/auth/me", authHandler.CurrentUser)

			r.With(requirePermission(permissions.FaceEnroll)).Post("/faces/enroll", attendanceHandler.Enroll)
			r.Route("/attendance", func(r chi.Router) {
				r.With(requirePermission(permissions.AttendanceRecord)).Post("/", attendanceHandler.Record)
				r.Get("/", attendanceHandler.History)
			})

			r.Route("/plates", func(r chi.Router) {
				r.With(requirePermission(permissions.PlateManage)).Post("/", plateHandler.Register)
				r.With(requirePermission(permissions.PlateDetect)).Get("/", plateHandler.List)
				r.With(requirePermission(permissions.PlateDetect)).Post("/detect", plateHandler.Detect)
				r.With(requirePermission(permissions.PlateDetect)).Get("/logs", plateHandler.Logs)
			})

			r.Route("/parking", func(r chi.Router) {
				r.With(requirePermission(permissions.ParkingManage)).Post("/spaces", parkingHandler.CreateSpace)
				r.Get("/spaces", parkingHandler.ListSpaces)
				r.With(requirePermission(permissions.ParkingAnalyze)).Post("/analyze", parkingHandler.Analyze)
				r.With(requirePermission(permissions.ParkingManage)).Get("/logs", parkingHandler.Logs)
			})

			r.Route("/reports", func(r chi.Router) {
				r.With(requirePermission(permissions.ReportsView)).Get("/attendance", reportHandler.Attendance)
				r.With(requirePermission(permissions.ReportsView)).Get("/attendance.csv", reportHandler.AttendanceCSV)
				r.With(requirePermission(permissions.ReportsViewAll)).Get("/plates", reportHandler.Plates)
				r.With(requirePermission(permissions.ReportsViewAll)).Get("/parking", reportHandler.Parking)
			})

			if c.Store != nil {
				r.Get("/"+config.DefaultCapturesSubDir+"/*", AssetServer(c.Store, config.DefaultCapturesSubDir, c.Log))
				r.Get("/"+config.DefaultDebugSubDir+"/*", AssetServer(c.Store, config.DefaultDebugSubDir, c.Log))
			}
		})
	})

	return r
}
