package handlers

import (
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/middleware"
	"github.com/iyunix/go-chatstream/internal/ratelimit"
	"github.com/iyunix/go-chatstream/internal/telemetry"
)

// RouterDeps gathers what the route table needs.
type RouterDeps struct {
	Pages   *PageHandler
	Chats   *ChatHandler
	Streams *StreamHandler
	Auth    *AuthHandler
	Logs    *LogHandler
	Health  *HealthHandler

	Tokens       middleware.TokenValidator
	LoginLimiter *ratelimit.MemoryRateLimiter
	Static       fs.FS
	Logger       logging.Logger
}

func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic(d.Logger))
	r.Use(middleware.RequestLogger(d.Logger))

	requireAuth := middleware.NewJWTMiddleware(d.Tokens, d.Logger)
	optionalAuth := middleware.NewOptionalAuthMiddleware(d.Tokens)
	loginLimit := middleware.RateLimitMiddleware(d.LoginLimiter, "auth", d.Logger)

	// --- Public Routes ---
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	r.HandleFunc("/health", d.Health.Health).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/login", d.Pages.ShowLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/register", d.Pages.ShowRegisterPage).Methods(http.MethodGet)
	r.Handle("/login", loginLimit(http.HandlerFunc(d.Auth.Login))).Methods(http.MethodPost)
	r.Handle("/register", loginLimit(http.HandlerFunc(d.Auth.Register))).Methods(http.MethodPost)
	r.HandleFunc("/logout", d.Auth.Logout).Methods(http.MethodGet, http.MethodPost)

	// --- Routes that work signed in or out ---
	public := r.NewRoute().Subrouter()
	public.Use(optionalAuth)
	public.HandleFunc("/", d.Chats.Index).Methods(http.MethodGet)
	public.HandleFunc("/chat/stream", d.Streams.StreamAnonymous).Methods(http.MethodPost)
	public.HandleFunc("/api/chats", d.Chats.ListChats).Methods(http.MethodGet)
	public.HandleFunc("/api/log", d.Logs.LogFrontendEvent).Methods(http.MethodPost)

	// --- Protected Routes ---
	protected := r.NewRoute().Subrouter()
	protected.Use(requireAuth)
	protected.HandleFunc("/chat", d.Chats.CreateChat).Methods(http.MethodPost)
	protected.HandleFunc("/chat/{id:[0-9]+}", d.Chats.ShowChat).Methods(http.MethodGet)
	protected.HandleFunc("/chat/{id:[0-9]+}", d.Chats.RenameChat).Methods(http.MethodPatch)
	protected.HandleFunc("/chat/{id:[0-9]+}", d.Chats.DeleteChat).Methods(http.MethodDelete)
	protected.HandleFunc("/chat/{id:[0-9]+}/stream", d.Streams.StreamChat).Methods(http.MethodPost)
	protected.HandleFunc("/chat/{id:[0-9]+}/title-stream", d.Streams.TitleStream).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(d.Pages.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}
