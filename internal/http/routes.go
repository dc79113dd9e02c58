package httpx

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/target/mmk-auth/internal/domain/model"
	"github.com/target/mmk-auth/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth    *service.AuthService[*model.User]
	Cookies CookieOptions
	// IsDev echoes issued codes in responses for manual testing.
	IsDev             bool
	PostLoginRedirect string
	// CSRF enables the double-submit token check when non-nil.
	CSRF              *CSRFConfig
	Logger            *slog.Logger // Logger for request logs and internal errors (optional)
}

// NewRouter creates the auth HTTP surface wrapped in recovery and request logging.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Auth != nil {
		h := &AuthHandlers{
			Svc:               services.Auth,
			Cookies:           services.Cookies,
			EchoCodes:         services.IsDev,
			PostLoginRedirect: services.PostLoginRedirect,
			Logger:            logger,
		}
		registerAuthRoutes(mux, h, RequireAuth(services.Auth, services.Cookies))
	}

	mws := []func(http.Handler) http.Handler{RequestID, Recover(logger), Logging(logger)}
	if services.CSRF != nil {
		csrf := *services.CSRF
		csrf.Cookies = services.Cookies
		mws = append(mws, CSRFProtection(csrf))
	}
	return Chain(mux, mws...)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/password/register", h.Register)
	mux.HandleFunc("POST /auth/password/login", h.Login)
	mux.Handle("POST /auth/password/change", requireAuth(http.HandlerFunc(h.ChangePassword)))

	mux.HandleFunc("POST /auth/code", h.RequestCode)
	mux.HandleFunc("POST /auth/code/login", h.LoginByCode)

	mux.Handle("POST /auth/confirm", requireAuth(http.HandlerFunc(h.RequestConfirmation)))
	mux.Handle("POST /auth/confirm/complete", requireAuth(http.HandlerFunc(h.Confirm)))

	mux.HandleFunc("POST /auth/recovery", h.RequestRecovery)
	mux.HandleFunc("POST /auth/recovery/complete", h.Recover)

	mux.HandleFunc("GET /auth/oauth/{provider}", h.OAuthStart)
	mux.HandleFunc("GET /auth/oauth/{provider}/callback", h.OAuthCallback)

	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/keepalive", h.KeepAlive)
	mux.HandleFunc("GET /auth/status", h.Status)
}

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}
