package handlers

import (
	"tourly/models"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	CtxCallerID   = "callerID"
	CtxCallerRole = "callerRole"
)

// callerFrom rebuilds the authenticated caller from the request context.
func callerFrom(c *gin.Context) models.Caller {
	return models.Caller{
		ID:   c.GetString(CtxCallerID),
		Role: c.GetString(CtxCallerRole),
	}
}
