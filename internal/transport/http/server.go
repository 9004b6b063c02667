package http

import (
	"github.com/gin-gonic/gin"

	"cogniva-docs/internal/bootstrap"
	"cogniva-docs/internal/transport/http/handler"
	"cogniva-docs/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Keep whole uploads in memory so nothing lands in temp files.
	maxUpload := int64(app.Config.App.MaxUploadMB) << 20
	router.MaxMultipartMemory = maxUpload

	healthHandler := handler.NewHealthHandler(app)
	docQAHandler := handler.NewDocQAHandler(app.DocQA)

	router.GET("/", docQAHandler.Root)
	router.GET("/healthz", healthHandler.Check)

	api := router.Group("/")
	api.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	api.POST("/process-pdfs", middleware.LimitBody(maxUpload), docQAHandler.ProcessPDFs)
	api.POST("/ask", docQAHandler.Ask)
	api.GET("/history", docQAHandler.History)

	return router
}
