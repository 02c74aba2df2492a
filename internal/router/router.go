package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"membership-auth/internal/config"
	"membership-auth/internal/handler"
	"membership-auth/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	roleHandler *handler.RoleHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", authHandler.Register)
			auth.Post("/login", authHandler.Login)
			auth.Post("/verify-otp", authHandler.VerifyOtp)
			auth.Post("/resend-otp", authHandler.ResendOtp)
			auth.Post("/reset-password", authHandler.ResetPassword)
			auth.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
			auth.With(authMiddleware.RequireAuth).Get("/users", authHandler.Users)
		})

		api.Route("/roles", func(roles chi.Router) {
			roles.Use(authMiddleware.RequireAuth)
			roles.Post("/", roleHandler.Create)
			roles.Get("/", roleHandler.List)
			roles.Get("/{role_id}", roleHandler.Get)
			roles.Put("/{role_id}", roleHandler.Update)
			roles.Delete("/{role_id}", roleHandler.Delete)
		})
	})

	return r
}
