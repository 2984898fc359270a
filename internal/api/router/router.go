package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicware/clinic-pos/internal/http/handlers"
	httpmiddleware "github.com/clinicware/clinic-pos/internal/http/middleware"
	"github.com/clinicware/clinic-pos/internal/live"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	Sessions      *handlers.SessionsHandler
	Appointments  *handlers.AppointmentsHandler
	Prescriptions *handlers.PrescriptionsHandler
	POS           *handlers.POSHandler
	Inventory     *handlers.InventoryHandler
	LabTests      *handlers.LabTestsHandler
	Staff         *handlers.StaffHandler
	Documents     *handlers.DocumentsHandler
	Reports       *handlers.ReportsHandler
	LiveHub       *live.Hub

	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// RateLimit caps requests/sec per IP on tenant routes; 0 disables.
	RateLimit      float64
	RateLimitBurst int
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped API routes.
	r.Group(func(tenant chi.Router) {
		tenant.Use(httpmiddleware.RequireOrg)
		if cfg.RateLimit > 0 {
			tenant.Use(httpmiddleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst))
		}

		if cfg.Sessions != nil {
			tenant.Get("/sessions/day", cfg.Sessions.GetDayView)
		}

		if cfg.Appointments != nil {
			tenant.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.Appointments.List)
				r.Post("/", cfg.Appointments.Create)
				r.Route("/{appointmentID}", func(r chi.Router) {
					r.Get("/", cfg.Appointments.Get)
					r.Post("/arrive", cfg.Appointments.MarkArrived)
					r.Post("/payment", cfg.Appointments.RecordPayment)
					r.Post("/review", cfg.Appointments.SetReviewStatus)
					r.Post("/carry-forward", cfg.Appointments.CarryForward)
					if cfg.Prescriptions != nil {
						r.Get("/prescriptions/reconciliation", cfg.Prescriptions.GetReconciliation)
						r.Get("/prescriptions/first", cfg.Prescriptions.GetFirst)
					}
				})
			})
		}

		if cfg.POS != nil {
			tenant.Route("/pos/prescriptions/{prescriptionID}", func(r chi.Router) {
				r.Post("/load", cfg.POS.Load)
				r.Post("/confirm", cfg.POS.Confirm)
			})
		}

		if cfg.Inventory != nil {
			tenant.Get("/inventory/items", cfg.Inventory.Search)
			tenant.Get("/inventory/expiring", cfg.Inventory.Expiring)
		}

		if cfg.LabTests != nil {
			tenant.Route("/lab", func(r chi.Router) {
				r.Post("/orders", cfg.LabTests.Create)
				r.Get("/dashboard", cfg.LabTests.Dashboard)
				r.Post("/orders/{orderID}/advance", cfg.LabTests.Advance)
			})
		}

		if cfg.Staff != nil {
			tenant.Get("/staff/doctors", cfg.Staff.ListDoctors)
			tenant.Get("/staff/{staffID}", cfg.Staff.Get)
		}

		if cfg.Documents != nil {
			tenant.Get("/documents", cfg.Documents.Download)
			tenant.Post("/documents/{kind}/{refID}", cfg.Documents.Upload)
		}

		if cfg.LiveHub != nil {
			tenant.Get("/live/appointments", cfg.LiveHub.HandleWebSocket)
		}
	})

	// Admin routes, protected by HMAC JWT.
	if cfg.AdminAuthSecret != "" && cfg.Reports != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Use(httpmiddleware.RequireOrg)
			admin.Get("/reports/daily", cfg.Reports.Daily)
			admin.Get("/reports/doctors", cfg.Reports.DoctorLoads)
			admin.Get("/reports/revenue", cfg.Reports.Revenue)
		})
	}

	return r
}
