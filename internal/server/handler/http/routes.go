package http

import (
	"net/http"

	"github.com/sparkyfit/authority/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// identity API. It applies JSON content-type enforcement, request
// logging and opaque-token session authentication, and mounts the
// identity endpoints under /identity.
//
// Parameters:
//
//	identityHandler - handler for identity and context-switch endpoints
//	sessionHandler  - handler for the session-provider endpoints
//	sessionAuth     - session authentication middleware
//	logger          - structured logger for request logging middleware
//
// Routes:
//
//	GET  /identity/user                    → identityHandler.ActiveUser
//	GET  /identity/users/accessible-users  → identityHandler.AccessibleUsers
//	POST /identity/switch-context          → identityHandler.SwitchContext
//	GET  /identity/session                 → sessionHandler.Session
//	POST /identity/signout                 → sessionHandler.SignOut
func NewRouter(
	identityHandler *IdentityHandler,
	sessionHandler *SessionHandler,
	sessionAuth func(http.Handler) http.Handler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Mount API routes; every endpoint requires a live session
	r.Route("/identity", func(r chi.Router) {
		r.Use(sessionAuth)

		r.Get("/user", identityHandler.ActiveUser)
		r.Get("/users/accessible-users", identityHandler.AccessibleUsers)
		r.Post("/switch-context", identityHandler.SwitchContext)

		r.Get("/session", sessionHandler.Session)
		r.Post("/signout", sessionHandler.SignOut)
	})

	return r
}
