package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Ops *OpsHandler
}

func RegisterRoutes(group *gin.RouterGroup, deps RouterDeps) {
	group.GET("/healthz", deps.Ops.Healthz)
	group.GET("/stats", deps.Ops.Stats)
}
