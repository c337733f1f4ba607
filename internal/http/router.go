// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"charterhub/internal/http/handlers"
	"charterhub/internal/http/middleware"
	"charterhub/internal/infra"
	"charterhub/internal/realtime"
)

type RouterDeps struct {
	Verifier      infra.TokenVerifier
	Matches       handlers.MatchService
	Charters      handlers.CharterService
	Conversations handlers.ConversationService
	Reports       handlers.ReportService
	Trips         handlers.TripService
	Hub           *realtime.Hub
	Log           *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(d.Log), middleware.Logging(d.Log))

	r.GET("/health", func(c *gin.Context) {
		users, rooms, conns := d.Hub.Registry().Stats()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_users": users, "ws_rooms": rooms, "ws_conns": conns})
	})

	auth := middleware.Auth(d.Verifier)
	r.GET("/ws", auth, handlers.NewWSHandler(d.Hub, d.Log).Serve)

	api := r.Group("/api", auth)

	match := handlers.NewMatchHandler(d.Matches)
	api.POST("/matches", match.Create)
	api.GET("/matches", match.List)
	api.GET("/matches/:id", match.Get)
	api.PUT("/matches/:id/select-charter", match.SelectCharter)
	api.PUT("/matches/:id/cancel", match.Cancel)
	api.POST("/matches/:id/create-trip", match.CreateTrip)

	charterOnly := api.Group("/charter", middleware.RequireRole("charter"))
	charter := handlers.NewCharterHandler(d.Charters)
	charterOnly.GET("/matches", match.CharterList)
	charterOnly.PUT("/matches/:id/respond", match.Respond)
	charterOnly.PUT("/availability", charter.SetAvailability)
	charterOnly.GET("/availability", charter.GetAvailability)
	charterOnly.PUT("/origin", charter.UpdateOrigin)

	conv := handlers.NewConversationHandler(d.Conversations, d.Matches)
	api.POST("/conversations/match/:matchId", conv.CreateForMatch)
	api.GET("/conversations/mine", conv.Mine)
	api.GET("/conversations/:id/messages", conv.Messages)
	api.POST("/conversations/:id/messages", conv.Send)
	api.PUT("/conversations/:id/close", conv.Close)

	reports := handlers.NewReportHandler(d.Reports)
	admin := middleware.RequireRole("admin")
	api.POST("/reports", reports.Create)
	api.GET("/reports", admin, reports.List)
	api.GET("/reports/mine", reports.Mine)
	api.GET("/reports/against-me", reports.AgainstMe)
	api.GET("/reports/:id", admin, reports.Get)
	api.PUT("/reports/:id", admin, reports.Update)

	trips := handlers.NewTripHandler(d.Trips)
	api.GET("/trips/:id", trips.Get)
	api.PUT("/trips/:id/charter-complete", trips.CharterComplete)
	api.PUT("/trips/:id/client-confirm", trips.Confirm)
	api.GET("/trips/:id/can-feedback", trips.CanFeedback)

	return r
}
