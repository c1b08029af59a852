package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ragcore/internal/middleware"
)

type RouterDeps struct {
	Projects  *ProjectHandler
	Documents *DocumentHandler
	Query     *QueryHandler
	Stream    *StreamHandler
	FileGen   *FileGenHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/projects", deps.Projects.Create)
	authGroup.GET("/projects", deps.Projects.List)
	authGroup.GET("/projects/:id", deps.Projects.Get)
	authGroup.DELETE("/projects/:id", deps.Projects.Delete)
	authGroup.GET("/projects/:id/conversations", deps.Query.ListConversations)

	authGroup.POST("/projects/:id/documents", deps.Documents.Upload)
	authGroup.GET("/projects/:id/documents", deps.Documents.List)
	authGroup.GET("/documents/:docID", deps.Documents.Get)
	authGroup.DELETE("/documents/:docID", deps.Documents.Delete)
	authGroup.POST("/documents/:docID/ingest", deps.Documents.Ingest)
	authGroup.POST("/documents/:docID/reingest", deps.Documents.Reingest)

	authGroup.POST("/query", deps.Query.Query)
	authGroup.POST("/query/memory", deps.Query.QueryWithMemory)
	authGroup.POST("/query/educational", deps.Query.Educational)
	authGroup.GET("/stream", deps.Stream.Start)

	authGroup.POST("/projects/:id/files", deps.FileGen.Create)
	authGroup.POST("/files/:fileID/versions", deps.FileGen.NewVersion)
	authGroup.GET("/files/:fileID/download", deps.FileGen.Download)
	authGroup.DELETE("/files/:fileID", deps.FileGen.Delete)
	authGroup.GET("/files/progress", deps.FileGen.Progress)
}
