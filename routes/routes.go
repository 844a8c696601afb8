package routes

import (
	"net/http"
	"strings"
	"time"

	"edunet/auth"
	"edunet/handlers"
	"edunet/metrics"
	"edunet/middleware"
	"edunet/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Handler *handlers.Handler
	Tokens  *auth.TokenManager
	Hub     *websocket.Hub
	Limiter *middleware.IPRateLimiter
	Origins []string
	// Roles re-reads roles for admin routes. Nil trusts the token claim.
	Roles middleware.RoleLookup
}

func SetupRouter(o Options) *gin.Engine {
	handlers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())
	corsConfig := cors.Config{
		AllowOrigins:     o.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(o.Origins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok", "time": time.Now().Unix()}
		if o.Hub != nil {
			body["wsClients"] = o.Hub.Connected()
		}
		c.JSON(http.StatusOK, body)
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if o.Hub != nil {
		router.GET("/ws", gin.WrapH(o.Hub))
	}

	h := o.Handler
	api := router.Group("/api")
	if o.Limiter != nil {
		api.Use(middleware.RateLimit(o.Limiter))
	}
	authed := middleware.Auth(o.Tokens)

	// Accounts, people, messaging and notifications
	accounts := api.Group("/auth")
	accounts.POST("/register", h.Register)
	accounts.POST("/login", h.Login)
	accounts.GET("/google/url", h.GoogleURL)
	accounts.GET("/google/callback", h.GoogleCallback)
	accounts.POST("/google", h.GoogleCredential)
	accounts.GET("/push/vapid-public-key", h.VapidPublicKey)

	me := accounts.Group("", authed)
	me.GET("/me", h.Me)
	me.PUT("/me", h.UpdateMe)
	me.PUT("/me/avatar", h.UploadAvatar)
	me.PUT("/me/status", h.SetStatus)
	me.POST("/push/subscribe", h.SubscribePush)

	me.GET("/users/search", h.SearchUsers)
	me.GET("/users/:id", h.GetUser)
	me.POST("/users/:id/follow", h.Follow)
	me.DELETE("/users/:id/follow", h.Unfollow)
	me.GET("/users/:id/followers", h.Followers)
	me.GET("/users/:id/followings", h.Followings)
	me.GET("/users/:id/friends", h.Friends)

	me.GET("/conversations", h.Conversations)
	me.POST("/conversations", h.CreateConversation)
	me.GET("/conversations/:id/messages", h.Messages)
	me.POST("/messages", h.SendMessage)

	me.GET("/notifications", h.Notifications)
	me.GET("/notifications/unread-count", h.UnreadCount)
	me.PUT("/notifications/read-all", h.MarkAllNotificationsRead)
	me.PUT("/notifications/:id/read", h.MarkNotificationRead)

	// Posts and everything around them
	posts := api.Group("/posts", authed)
	posts.POST("", h.CreatePost)
	posts.GET("/feed", h.Feed)
	posts.POST("/media", h.UploadPostMedia)
	posts.GET("/user/:userId", h.UserPosts)
	posts.GET("/:id", h.GetPost)
	posts.PUT("/:id", h.UpdatePost)
	posts.DELETE("/:id", h.DeletePost)
	posts.POST("/:id/like", h.ToggleLike)
	posts.PUT("/:id/like", h.Like)
	posts.DELETE("/:id/like", h.Unlike)
	posts.GET("/:id/likes", h.Likers)
	posts.POST("/:id/share", h.SharePost)
	posts.GET("/:id/comments", h.Comments)
	posts.POST("/:id/comments", h.AddComment)
	posts.DELETE("/comments/:commentId", h.DeleteComment)

	posts.GET("/tags", h.Tags)
	posts.POST("/tags", h.CreateTag)
	posts.GET("/tags/:name/posts", h.TagPosts)

	posts.GET("/groups", h.Groups)
	posts.POST("/groups", h.CreateGroup)
	posts.GET("/groups/:groupId", h.GetGroup)
	posts.PUT("/groups/:groupId", h.UpdateGroup)
	posts.DELETE("/groups/:groupId", h.DeleteGroup)
	posts.POST("/groups/:groupId/join", h.JoinGroup)
	posts.POST("/groups/:groupId/leave", h.LeaveGroup)
	posts.GET("/groups/:groupId/posts", h.GroupPosts)

	posts.POST("/reports", h.CreateReport)

	admin := api.Group("/admin", authed, middleware.AdminOnly(o.Roles))
	admin.GET("/stats", h.Stats)
	admin.GET("/users", h.AdminUsers)
	admin.PUT("/users/:id/role", h.SetRole)
	admin.DELETE("/users/:id", h.AdminDeleteUser)
	admin.DELETE("/posts/:id", h.AdminDeletePost)
	admin.GET("/reports", h.Reports)
	admin.PUT("/reports/:id", h.UpdateReport)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}
