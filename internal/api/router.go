package api

import (
	"context"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/haventeam/haven/internal/api/recovery"
	"github.com/haventeam/haven/internal/auth"
	"github.com/haventeam/haven/internal/gateway"
	"github.com/haventeam/haven/internal/services"
)

// Deps carries everything the router wires together.
type Deps struct {
	Gateway       *gateway.Gateway
	Notifications *services.NotificationService
	Teams         *services.TeamService
	Verifier      auth.Verifier
	DBPing        func(context.Context) error
	CORSOrigins   []string
	PageSize      int
	MaxPageSize   int
	Log           zerolog.Logger
}

// NewRouter creates the HTTP router with all API routes. Health endpoints are
// open; everything else sits behind the auth middleware.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	healthHandler := NewHealthHandler(d.DBPing)
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/health/db", healthHandler.CheckStorageHealth).Methods("GET")

	itemHandler := NewItemHandler(d.Gateway, d.PageSize, d.MaxPageSize)
	notificationHandler := NewNotificationHandler(d.Notifications, d.PageSize, d.MaxPageSize)
	teamHandler := NewTeamHandler(d.Teams)

	authed := router.PathPrefix("/api").Subrouter()
	authed.Use(auth.Middleware(d.Verifier, d.Log))

	// Item endpoints, one route set shared by every kind
	authed.HandleFunc("/items/{kind}", itemHandler.CreateItem).Methods("POST")
	authed.HandleFunc("/items/{kind}", itemHandler.ListItems).Methods("GET")
	authed.HandleFunc("/items/{kind}/{id:[0-9a-fA-F-]{36}}", itemHandler.GetItem).Methods("GET")
	authed.HandleFunc("/items/{kind}/{id:[0-9a-fA-F-]{36}}", itemHandler.UpdateItem).Methods("PUT")
	authed.HandleFunc("/items/{kind}/{id:[0-9a-fA-F-]{36}}", itemHandler.DeleteItem).Methods("DELETE")

	// Notification feed
	authed.HandleFunc("/notifications", notificationHandler.ListNotifications).Methods("GET")
	authed.HandleFunc("/notifications", notificationHandler.MarkNotificationsRead).Methods("PUT")
	authed.HandleFunc("/notifications", notificationHandler.DeleteNotifications).Methods("DELETE")

	// Team endpoints
	authed.HandleFunc("/teams", teamHandler.CreateTeam).Methods("POST")
	authed.HandleFunc("/teams", teamHandler.ListTeams).Methods("GET")
	authed.HandleFunc("/teams/{id:[0-9a-fA-F-]{36}}", teamHandler.GetTeam).Methods("GET")
	authed.HandleFunc("/teams/{id:[0-9a-fA-F-]{36}}", teamHandler.UpdateTeam).Methods("PUT")
	authed.HandleFunc("/teams/{id:[0-9a-fA-F-]{36}}", teamHandler.DeleteTeam).Methods("DELETE")

	return router
}
