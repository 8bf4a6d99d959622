package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/metrics"
)

// Controllers bundles everything Register needs
type Controllers struct {
	Auth      *AuthController
	Products  *ProductsController
	Orders    *OrdersController
	Documents *DocumentsController
	Clients   *ClientsController

	Provider auth.Provider
	Profiles auth.Profiles
	Logger   auth.Logger

	Registry  *prometheus.Registry
	Collector *metrics.Collector
}

// Register mounts every route on the app.
func Register(app *fiber.App, c Controllers) {
	session := RequireSession(c.Provider, c.Profiles, c.Logger)
	admin := RequireAdmin()

	// credential endpoints are the brute-force surface
	authLimit := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/sign-in", authLimit, c.Auth.SignIn)
	authGroup.Post("/sign-up", authLimit, c.Auth.SignUp)
	authGroup.Post("/sign-out", session, c.Auth.SignOut)
	authGroup.Get("/session", session, c.Auth.Session)

	app.Get("/products", c.Products.ListPublic)

	client := app.Group("/client", session)
	client.Post("/orders", c.Orders.Create)
	client.Get("/orders", c.Orders.ListMine)
	client.Get("/orders/:id", c.Orders.ShowMine)
	client.Get("/documents", c.Documents.ListPublic)

	back := app.Group("/admin", session, admin)
	back.Get("/products", c.Products.List)
	back.Post("/products", c.Products.Create)
	back.Get("/products/:id", c.Products.Show)
	back.Put("/products/:id", c.Products.Update)
	back.Post("/products/:id/image", c.Products.UploadImage)
	back.Post("/products/:id/activate", c.Products.SetActive(true))
	back.Post("/products/:id/deactivate", c.Products.SetActive(false))
	back.Delete("/products/:id", c.Products.Delete)

	back.Get("/clients", c.Clients.List)
	back.Get("/clients/:id", c.Clients.Show)
	back.Put("/clients/:id/status", c.Clients.UpdateStatus)
	back.Delete("/clients/:id", c.Clients.Delete)

	back.Get("/orders", c.Orders.List)
	back.Put("/orders/:id/status", c.Orders.UpdateStatus)
	back.Put("/orders/:id/payment", c.Orders.UpdatePaymentStatus)

	back.Get("/documents", c.Documents.List)
	back.Post("/documents", c.Documents.Upload)
	back.Put("/documents/:id", c.Documents.Update)
	back.Delete("/documents/:id", c.Documents.Delete)

	if c.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(c.Registry)))
	}
}
