package routes

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"usermanager/internal/controllers"
	"usermanager/internal/middleware"
	"usermanager/internal/storage"
)

// Route is one entry of the dispatch table.
type Route struct {
	Method   string
	Path     string
	Mutating bool // Passes through the rate limiter
	Handler  gin.HandlerFunc
}

// Deps are the pieces the router dispatches to.
type Deps struct {
	Users     *controllers.UserController
	Health    *controllers.HealthController
	Limiter   *middleware.RateLimiter // Optional
	Templates *template.Template
	Storage   storage.Storage // Served from disk when it is local storage
}

// Table returns the application's routes in registration order.
func Table(d Deps) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Handler: func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/users")
		}},
		{Method: http.MethodGet, Path: "/health", Handler: d.Health.Health},
		{Method: http.MethodGet, Path: "/users", Handler: d.Users.Index},
		{Method: http.MethodGet, Path: "/users/create", Handler: d.Users.Create},
		{Method: http.MethodPost, Path: "/users", Mutating: true, Handler: d.Users.Store},
		{Method: http.MethodGet, Path: "/users/:id/edit", Handler: d.Users.Edit},
		{Method: http.MethodPut, Path: "/users/:id", Mutating: true, Handler: d.Users.Update},
		{Method: http.MethodPatch, Path: "/users/:id", Mutating: true, Handler: d.Users.Update},
		{Method: http.MethodDelete, Path: "/users/:id", Mutating: true, Handler: d.Users.Destroy},
	}
}

// New builds the gin engine from the dispatch table
func New(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.SetHTMLTemplate(d.Templates)

	for _, r := range Table(d) {
		handlers := []gin.HandlerFunc{}
		if r.Mutating && d.Limiter != nil {
			handlers = append(handlers, d.Limiter.LimitMiddleware())
		}
		router.Handle(r.Method, r.Path, append(handlers, r.Handler)...)
	}

	if local, ok := d.Storage.(*storage.LocalStorage); ok && strings.HasPrefix(local.BaseURL(), "/") {
		router.Static(local.BaseURL(), local.Root())
	}

	router.NoRoute(controllers.NotFound)

	return router
}

// Handler wraps the engine with method override.
func Handler(d Deps) http.Handler {
	return MethodOverride(New(d))
}

var overridable = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride rewrites a POST carrying a _method form field of PUT, PATCH
// or DELETE before the request is routed.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			// PostFormValue parses urlencoded and multipart bodies alike.
			if method := strings.ToUpper(r.PostFormValue("_method")); overridable[method] {
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}
