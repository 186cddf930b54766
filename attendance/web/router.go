package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	common "practitrack.com/practitrack/attendance/web/common"
	"practitrack.com/practitrack/attendance/web/handlers/absences"
	"practitrack.com/practitrack/attendance/web/handlers/attendance"
	"practitrack.com/practitrack/config"
	"practitrack.com/practitrack/web/handlers"
	"practitrack.com/practitrack/web/middlewares"
)

const basePath = "/api/practitrack/v1.0"

func NewRouter(cfg *config.Config, h *common.Handler, photos handlers.ObjectStore, log *zap.Logger) *gin.Engine {
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(log))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	protected := r.Group(basePath)
	protected.Use(middlewares.Authentication(cfg.SigningSecret))
	{
		attendance.Register(protected, h)
		absences.Register(protected, h)
		protected.POST("/attendance/photos", handlers.PhotoUploadHandler(photos, cfg.PhotoBucket, func() time.Time {
			return time.Now().In(h.Location)
		}))
	}

	return r
}
