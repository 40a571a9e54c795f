// Package api contains all endpoints available
package api

import (
	"bitwise74/files-api/middleware"
	"bitwise74/files-api/security"
	"bitwise74/files-api/service"
	"bitwise74/files-api/session"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Argon    *security.ArgonHash
	Sessions *session.Store
	Queue    *service.Queue
	Uploader *service.Uploader
}

// Deps are the process-wide collaborators. The entry point owns their
// lifecycle, the router only borrows them
type Deps struct {
	DB       *gorm.DB
	Sessions *session.Store
	Queue    *service.Queue
}

func NewRouter(d *Deps) (*API, error) {
	a := &API{
		DB:       d.DB,
		Argon:    security.New(),
		Sessions: d.Sessions,
		Queue:    d.Queue,
		Uploader: service.NewUploader(d.DB, d.Queue),
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Token"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	auth := middleware.NewTokenMiddleware(d.Sessions)
	maxUploadSize := viper.GetInt64("upload.max_size")

	// GET /status			-> Liveness of the Redis cache and the database
	router.GET("/status", a.Status)

	// GET /stats			-> User and file counts
	router.GET("/stats", cacheFor(30), a.Stats)

	// GET /connect			-> Basic auth in, session token out
	router.GET("/connect", middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	}), a.Connect)

	// GET /disconnect		-> Revokes the presented session token
	router.GET("/disconnect", auth, a.Disconnect)

	users := router.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// POST /users 		-> Registers a new user
		users.POST("", a.UserRegister)

		// GET /users/me	-> Returns the authenticated user
		users.GET("/me", auth, a.UserMe)
	}

	files := router.Group("/files")
	{
		// POST /files			-> Uploads a new file or creates a folder
		files.POST("", auth, middleware.BodySizeLimiter(maxUploadSize), a.FileUpload)

		// GET /files			-> Lists a user's files under a parent, pages of 20
		files.GET("", auth, a.FileIndex)

		// GET /files/:id		-> Returns a single file document
		files.GET("/:id", auth, a.FileShow)

		// PUT /files/:id/publish	-> Makes a file public
		files.PUT("/:id/publish", auth, a.FilePublish)

		// PUT /files/:id/unpublish	-> Makes a file private again
		files.PUT("/:id/unpublish", auth, a.FileUnpublish)

		// GET /files/:id/data		-> Serves the bytes, ?size= picks a rendition
		files.GET("/:id/data", a.FileData)
	}

	return a, nil
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
