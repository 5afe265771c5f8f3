package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SwaggerPath serves the documentation UI and doc.json
const SwaggerPath = "/swagger/*any"

// SwaggerRoutes mounts the API documentation outside the versioned API
// group, behind the given guards. The document itself is registered by
// importing the docs package.
func SwaggerRoutes(engine *gin.Engine, guards ...gin.HandlerFunc) {
	handlers := append(guards, ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET(SwaggerPath, handlers...)
}
