package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"parkspot/backend/services/parking-service/internal/http/handlers"
	"parkspot/backend/services/parking-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Lots          *handlers.LotsHandler
	AdminLots     *handlers.AdminLotsHandler
	Sessions      *handlers.SessionsHandler
	Guard         *handlers.GuardHandler
	Notifications *handlers.NotificationsHandler
	Socket        http.HandlerFunc
	Health        http.HandlerFunc
	Metrics       http.Handler
	JWTSecret     string
}

// NewRouter wires HTTP routes with their access rules.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	authenticated := func(handler http.HandlerFunc, guards ...func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(handler, append([]func(http.Handler) http.Handler{middleware.AuthMiddleware(deps.JWTSecret)}, guards...)...)
	}
	gate := middleware.RequireGateOperator()
	admin := middleware.RequireLotManager()

	mux.Handle("/health", method(http.MethodGet, deps.Health))
	if deps.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, deps.Metrics))
	}

	mux.Handle("/api/parking/lots", method(http.MethodGet, http.HandlerFunc(deps.Lots.List)))
	mux.Handle("/api/parking/lots/{id}", method(http.MethodGet, http.HandlerFunc(deps.Lots.Get)))
	mux.Handle("/api/parking/lots/{id}/availability", method(http.MethodGet, http.HandlerFunc(deps.Lots.Availability)))

	mux.Handle("/api/parking/start-session", method(http.MethodPost, authenticated(deps.Sessions.StartSession)))
	mux.Handle("/api/parking/book", method(http.MethodPost, authenticated(deps.Sessions.Book)))
	mux.Handle("/api/parking/complete-session", method(http.MethodPost, authenticated(deps.Sessions.CompleteSession)))
	mux.Handle("/api/parking/cancel-booking", method(http.MethodPost, authenticated(deps.Sessions.CancelBooking)))
	mux.Handle("/api/parking/active-session", method(http.MethodGet, authenticated(deps.Sessions.ActiveSession)))
	mux.Handle("/api/parking/bookings", method(http.MethodGet, authenticated(deps.Sessions.History)))

	mux.Handle("/api/parking/guard/entry", method(http.MethodPost, authenticated(deps.Guard.Entry, gate)))
	mux.Handle("/api/parking/guard/exit", method(http.MethodPost, authenticated(deps.Guard.Exit, gate)))
	mux.Handle("/api/parking/guard/active-sessions", method(http.MethodGet, authenticated(deps.Guard.ActiveSessions, gate)))

	mux.Handle("/api/notifications", method(http.MethodGet, authenticated(deps.Notifications.List)))
	mux.Handle("/api/notifications/read-all", method(http.MethodPost, authenticated(deps.Notifications.MarkAllRead)))
	mux.Handle("/api/notifications/{id}/read", method(http.MethodPost, authenticated(deps.Notifications.MarkRead)))
	if deps.Socket != nil {
		mux.Handle("/api/notifications/ws", method(http.MethodGet, middleware.SocketAuthMiddleware(deps.JWTSecret)(deps.Socket)))
	}

	mux.Handle("/api/admin/lots", methods(map[string]http.Handler{
		http.MethodGet:  authenticated(deps.AdminLots.List, admin),
		http.MethodPost: authenticated(deps.AdminLots.Create, admin),
	}))
	mux.Handle("/api/admin/lots/{id}", methods(map[string]http.Handler{
		http.MethodGet:    authenticated(deps.Lots.Get, admin),
		http.MethodPut:    authenticated(deps.AdminLots.Update, admin),
		http.MethodDelete: authenticated(deps.AdminLots.Delete, admin),
	}))

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return methods(map[string]http.Handler{expected: handler})
}

func methods(byMethod map[string]http.Handler) http.Handler {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
