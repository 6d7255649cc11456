package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Code:    string(CodeInternal),
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// AbortWithError maps a service error onto the HTTP response. Coded errors
// keep their code and message; anything else surfaces as INTERNAL without
// leaking the underlying cause.
func AbortWithError(c *gin.Context, err error) {
	logger := GetLogger()

	var ae *AppError
	if errors.As(err, &ae) {
		if ae.Code == CodeInternal {
			logger.Error("internal error", zap.Error(err))
		} else {
			logger.Warn("request failed", zap.String("code", string(ae.Code)), zap.String("message", ae.Message))
		}
		c.AbortWithStatusJSON(HTTPStatus(ae.Code), ErrorResponse{
			Code:    string(ae.Code),
			Message: ae.Message,
		})
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:    string(CodeInternal),
		Message: "Internal Server Error",
	})
}
