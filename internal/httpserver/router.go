package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"foundation_backend/internal/config"
	"foundation_backend/internal/metrics"
	"foundation_backend/internal/security"
	"foundation_backend/internal/service"
	"foundation_backend/internal/store"
	"foundation_backend/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	stores *store.Stores,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log, m))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	authSvc := service.NewAuthService(stores.Users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(stores.Users)
	foundationSvc := service.NewFoundationService(stores.Foundations)
	convSvc := service.NewConversationService(stores.Conversations, stores.Participants, stores.Messages, stores.Users, m)
	msgSvc := service.NewMessageService(stores.Messages, stores.Conversations, stores.Participants, stores.Notifications, stores.Users, hub, m, log)
	notifSvc := service.NewNotificationService(stores.Notifications, stores.Users, hub, m, log)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Read endpoints with optional auth: missing or bad credentials
		// produce empty results, not errors.
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware(tokenSvc, stores.Users))

			r.Get("/conversations", handleListConversations(convSvc))
			r.Get("/conversations/unread-count", handleUnreadCount(msgSvc))
			r.Get("/conversations/{conversationID}/messages", handleListMessages(msgSvc))
			r.Get("/users/search", handleSearchUsers(userSvc))
			r.Get("/notifications", handleListNotifications(notifSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, stores.Users, log))

			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/me", handleMe())

			r.Post("/foundations", handleCreateFoundation(foundationSvc))
			r.Get("/foundations", handleListFoundations(foundationSvc))
			r.Get("/foundations/{foundationID}", handleGetFoundation(foundationSvc))

			r.Get("/users", handleListUsers(userSvc))
			r.Get("/users/{userID}", handleGetUser(userSvc))
			r.Delete("/users/{userID}", handleDeleteUser(userSvc))

			r.Post("/conversations", handleCreateConversation(convSvc))
			r.Get("/conversations/{conversationID}", handleGetConversation(convSvc))
			r.Delete("/conversations/{conversationID}", handleDeactivateConversation(convSvc))
			r.Post("/conversations/{conversationID}/read", handleMarkConversationRead(msgSvc))
			r.Post("/conversations/{conversationID}/messages", handleCreateMessage(msgSvc))

			r.Post("/notifications", handleCreateNotification(notifSvc))

			r.Mount("/uploads", UploadRoutes(cfg))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, stores.Users, stores.Participants, msgSvc, cfg.CORSOrigins, log))

	return r
}
