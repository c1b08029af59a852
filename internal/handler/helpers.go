package handler

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ragcore/internal/middleware"
	appErr "github.com/xxxsen/ragcore/internal/pkg/errcode"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	log.Printf("request_id=%v method=%s path=%s error=%v", requestID, c.Request.Method, c.Request.URL.Path, err)

	switch {
	case coreerrors.IsNotFound(err):
		response.Error(c, appErr.ErrNotFound, "not found")
	case err == coreerrors.ErrUnauthorized:
		response.Error(c, appErr.ErrUnauthorized, "unauthorized")
	case err == coreerrors.ErrForbidden:
		response.Error(c, appErr.ErrForbidden, "forbidden")
	case err == coreerrors.ErrInvalid:
		response.Error(c, appErr.ErrInvalid, "invalid request")
	case coreerrors.IsConflict(err):
		response.Error(c, appErr.ErrConflict, "conflict")
	case err == coreerrors.ErrUnsupportedFormat:
		response.Error(c, appErr.ErrUnsupportedFormat, "unsupported document format")
	case err == coreerrors.ErrEmptyContent:
		response.Error(c, appErr.ErrEmptyContent, "document content is empty")
	case err == coreerrors.ErrAlreadyProcessed:
		response.Error(c, appErr.ErrAlreadyProcessed, "document already processed")
	case err == coreerrors.ErrNotIndexed:
		response.Error(c, appErr.ErrNotIndexed, "project is not indexed")
	case err == coreerrors.ErrModelReturnedEmpty, err == coreerrors.ErrEmbeddingUnavailable, err == coreerrors.ErrVectorStoreUnavailable:
		response.Error(c, appErr.ErrAIUnavailable, "ai backend unavailable")
	case err == coreerrors.ErrSlowConsumer:
		response.Error(c, appErr.ErrSlowConsumer, "slow consumer")
	default:
		response.Error(c, appErr.ErrInternal, "internal error")
	}
}
