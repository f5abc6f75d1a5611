package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/minhtq/quizchat/internal/adapters/ws"
	"github.com/minhtq/quizchat/internal/auth"
	"github.com/minhtq/quizchat/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, verifier *auth.Verifier, wsCtl *ws.Controller, h *Handlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	// The websocket handshake carries the token as a query parameter:
	// browsers cannot set headers on an upgrade request.
	r.GET("/ws/chat", func(c *gin.Context) {
		wsCtl.HandleChat(ctx, c)
	})
	r.GET("/ws/discussion/:quizId", func(c *gin.Context) {
		wsCtl.HandleDiscussion(ctx, c)
	})

	api := r.Group("/api", BearerAuth(verifier))

	chat := api.Group("/chat")
	chat.GET("/messages", h.ListChatMessages)
	chat.DELETE("/messages", h.DeleteAllChatMessages)
	chat.DELETE("/messages/:messageId", h.DeleteChatMessage)
	chat.GET("/private/:userId", h.ListPrivateThread)
	chat.DELETE("/private/:userId", h.DeletePrivateThread)
	chat.GET("/online", h.OnlineUsers)

	discussions := api.Group("/discussions")
	discussions.POST("", h.AddDiscussion)
	discussions.GET("", h.ListDiscussions)
	discussions.GET("/:quizId", h.GetDiscussion)
	discussions.DELETE("/:quizId", h.RemoveDiscussion)
	discussions.GET("/:quizId/messages", h.ListDiscussionMessages)
	discussions.GET("/:quizId/online", h.DiscussionOnlineUsers)

	return r
}
