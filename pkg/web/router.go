// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/web/controller"
	"github.com/alibaba/opensandbox/procmon/pkg/web/model"
)

// NewRouter builds a Gin engine with all procmon routes.
func NewRouter(accessToken string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(), accessTokenMiddleware(accessToken))

	r.GET("/ping", controller.PingHandler)

	processes := r.Group("/processes")
	{
		processes.GET("", withProcess(func(c *controller.ProcessController) { c.ListProcesses() }))
		processes.POST("/kill", withProcess(func(c *controller.ProcessController) { c.KillProcess() }))
		processes.GET("/watch", withProcess(func(c *controller.ProcessController) { c.WatchProcesses() }))
		processes.GET("/ws", withProcess(func(c *controller.ProcessController) { c.StreamProcesses() }))
	}

	// paths used by the original dashboard client
	api := r.Group("/api")
	{
		api.GET("/processes", withProcess(func(c *controller.ProcessController) { c.ListProcesses() }))
		api.POST("/kill-process", withProcess(func(c *controller.ProcessController) { c.KillProcess() }))
	}

	system := r.Group("/system")
	{
		system.GET("", withMetric(func(c *controller.MetricController) { c.GetSystemInfo() }))
		system.GET("/watch", withMetric(func(c *controller.MetricController) { c.WatchSystemInfo() }))
	}

	return r
}

func withProcess(fn func(*controller.ProcessController)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fn(controller.NewProcessController(ctx))
	}
}

func withMetric(fn func(*controller.MetricController)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fn(controller.NewMetricController(ctx))
	}
}

func accessTokenMiddleware(token string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token == "" {
			ctx.Next()
			return
		}

		requestedToken := ctx.GetHeader(model.ApiAccessTokenHeader)
		if requestedToken == "" {
			requestedToken = ctx.Query(model.ApiAccessTokenQuery)
		}
		if requestedToken == "" || requestedToken != token {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Code:    model.ErrorCodeUnauthorized,
				Message: "Unauthorized: invalid or missing header " + model.ApiAccessTokenHeader,
			})
			return
		}

		ctx.Next()
	}
}

func logMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		log.Info("Requested: %v - %v", ctx.Request.Method, ctx.Request.URL.Path)
		ctx.Next()
	}
}
