package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/service"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/pkg/httpx"
	"github.com/aussiebroadwan/userdir/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	jwtSecret    []byte
	tokenTTL     time.Duration
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AccountService *service.AccountService
	BindingService *service.BindingService
}

func NewRouter(
	jwtSecret []byte,
	tokenTTL time.Duration,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerAccounts()
	r.registerBindings()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	login := &LoginHandler{
		Accounts:  r.AccountService,
		JWTSecret: r.jwtSecret,
		TokenTTL:  r.tokenTTL,
	}

	// Strict rate limit keyed by IP + submitted email (brute force).
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(login.Handle),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{Accounts: r.AccountService}
	staff := httpx.AuthnMiddleware(r.jwtSecret, true)

	r.Mux.Handle("GET /v1/accounts", httpx.Chain(http.HandlerFunc(h.List), staff))
	r.Mux.Handle("GET /v1/accounts/count", httpx.Chain(http.HandlerFunc(h.Count), staff))
	r.Mux.Handle("GET /v1/accounts/{email}", httpx.Chain(http.HandlerFunc(h.Get), staff))
	r.Mux.Handle("POST /v1/accounts", httpx.Chain(http.HandlerFunc(h.Create), staff,
		httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/accounts/{email}", httpx.Chain(http.HandlerFunc(h.Delete), staff))
	r.Mux.Handle("PUT /v1/accounts/{id}", httpx.Chain(http.HandlerFunc(h.Update), staff))
}

func (r *Router) registerBindings() {
	h := &BindingsHandler{Bindings: r.BindingService}
	staff := httpx.AuthnMiddleware(r.jwtSecret, true)

	r.Mux.Handle("PUT /v1/bindings/{peerID}", httpx.Chain(http.HandlerFunc(h.Bind), staff))
	r.Mux.Handle("GET /v1/bindings/peer/{peerID}", httpx.Chain(http.HandlerFunc(h.GetEmail), staff))
	r.Mux.Handle("GET /v1/bindings/email/{email}", httpx.Chain(http.HandlerFunc(h.GetPeers), staff))
	r.Mux.Handle("DELETE /v1/bindings/{peerID}", httpx.Chain(http.HandlerFunc(h.Unbind), staff))
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
