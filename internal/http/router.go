// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gofer/internal/ai"
	"gofer/internal/http/handlers"
	"gofer/internal/http/middleware"
	"gofer/internal/infra"
	"gofer/internal/modules/aiusage"
	"gofer/internal/modules/escrow"
	"gofer/internal/modules/fulfillment"
	"gofer/internal/modules/intent"
	"gofer/internal/modules/order"
	"gofer/internal/modules/stage"
)

type RouterDeps struct {
	Intents     *intent.Service
	Orders      *order.Service
	Stages      *stage.Service
	Ledger      *escrow.Service
	Fulfillment *fulfillment.Service
	AIProvider  ai.LLMProvider
	AIUsage     *aiusage.Service
	Verifier    infra.TokenVerifier
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	authed := r.Group("/api", middleware.Auth(deps.Verifier))

	draftHandler := handlers.NewDraftHandler(deps.Intents)
	authed.POST("/drafts", draftHandler.Create)
	authed.GET("/drafts/:id", draftHandler.Get)
	authed.PUT("/drafts/:id", draftHandler.Update)
	authed.POST("/drafts/:id/advance", draftHandler.Advance)
	authed.POST("/drafts/:id/convert", draftHandler.Convert)
	authed.DELETE("/drafts/:id", draftHandler.Discard)

	aiHandler := handlers.NewAIHandler(deps.AIProvider, deps.AIUsage)
	authed.POST("/intents/suggest", aiHandler.Suggest)

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Intents, deps.Stages, deps.Ledger, deps.Fulfillment)
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.POST("/orders/:id/accept", orderHandler.Accept)
	authed.POST("/orders/:id/reject", orderHandler.Reject)
	authed.POST("/orders/:id/payment", orderHandler.Payment)
	authed.POST("/orders/:id/stages/:seq/status", orderHandler.StageStatus)

	return r
}
