package router

import (
	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/interfaces/http/handler"
	"github.com/marmoleria/backend/internal/interfaces/http/middleware"
)

// Handlers are the engine's HTTP handlers. Document, Assistant, Outbox and
// Auth are optional; their routes are only mounted when set.
type Handlers struct {
	Quote       *handler.QuoteHandler
	Reservation *handler.ReservationHandler
	Stock       *handler.StockHandler
	Sales       *handler.SalesHandler
	Catalog     *handler.CatalogHandler
	System      *handler.SystemHandler
	Document    *handler.DocumentHandler
	Assistant   *handler.AssistantHandler
	Outbox      *handler.OutboxHandler
	Auth        *handler.AuthHandler
}

// Guards are the middleware protecting the domain groups
type Guards struct {
	// Actor resolves the caller and runs before every group except system.
	// Middleware that reads the actor goes after the resolver.
	Actor []gin.HandlerFunc
	// AssistantLimit throttles text generation, optional
	AssistantLimit gin.HandlerFunc
}

// Domains builds the route groups of the engine API
func Domains(h Handlers, g Guards) []*DomainGroup {
	approvers := middleware.RequireRole(reservation.RoleAccounting, reservation.RoleAdmin)
	admin := middleware.RequireRole(reservation.RoleAdmin)

	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	catalog := NewDomainGroup("catalog", "/catalog").Use(g.Actor...).
		GET("/products", h.Catalog.ListProducts).
		GET("/products/:reference", h.Catalog.GetProduct)

	quotes := NewDomainGroup("quotes", "/quotes").Use(g.Actor...).
		POST("/compute", h.Quote.Compute).
		POST("", h.Quote.Create).
		GET("", h.Quote.List).
		GET("/:number", h.Quote.Get).
		POST("/:number/cancel", h.Quote.Cancel)
	if h.Document != nil {
		quotes.GET("/:number/pdf", h.Document.RenderPDF).
			POST("/:number/archive", h.Document.Archive).
			GET("/:number/archive", h.Document.Link)
	}

	reservations := NewDomainGroup("reservations", "/reservations").Use(g.Actor...).
		POST("", h.Reservation.Create).
		GET("", h.Reservation.List).
		GET("/:id", h.Reservation.Get).
		POST("/:id/validate", h.Reservation.Validate).
		POST("/:id/reject", h.Reservation.Reject).
		POST("/:id/dispatch", h.Reservation.Dispatch)

	stock := NewDomainGroup("stock", "/stock").Use(g.Actor...).
		GET("/balances", h.Stock.Balances).
		GET("/availability/:reference", h.Stock.Availability).
		GET("/export", h.Stock.Export).
		POST("/receipts", approvers, h.Stock.Receive).
		POST("/containers", approvers, h.Stock.RegisterContainer).
		GET("/containers/:id", h.Stock.GetContainer).
		POST("/containers/:id/status", approvers, h.Stock.AdvanceContainer)

	sales := NewDomainGroup("sales", "/sales").Use(g.Actor...).
		GET("/advisors/:advisor", h.Sales.ForPeriod).
		GET("/advisors/:advisor/series", h.Sales.Series).
		GET("/advisors/:advisor/export", h.Sales.Export).
		POST("/rebuild", admin, h.Sales.Rebuild)

	groups := []*DomainGroup{system, catalog, quotes, reservations, stock, sales}

	if h.Assistant != nil {
		assistant := NewDomainGroup("assistant", "/assistant").Use(g.Actor...)
		if g.AssistantLimit != nil {
			assistant.Use(g.AssistantLimit)
		}
		assistant.POST("/advisors/:advisor/suggestions", h.Assistant.Suggest).
			POST("/campaigns", h.Assistant.Campaign)
		groups = append(groups, assistant)
	}
	if h.Outbox != nil {
		system.Group("outbox", "/outbox").Use(g.Actor...).Use(admin).
			GET("/dead", h.Outbox.ListDeadLetters).
			POST("/dead/retry-all", h.Outbox.RetryAllDeadEntries).
			GET("/stats", h.Outbox.GetStats).
			GET("/:id", h.Outbox.GetEntry).
			POST("/:id/retry", h.Outbox.RetryDeadEntry)
	}
	if h.Auth != nil {
		groups = append(groups, NewDomainGroup("auth", "/auth").Use(g.Actor...).
			POST("/tokens", admin, h.Auth.IssueToken).
			POST("/revoke", h.Auth.Revoke).
			GET("/me", h.Auth.Me))
	}
	return groups
}
