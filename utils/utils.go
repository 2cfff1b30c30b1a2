package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericServerError = "An unexpected error occurred. Please try again later."

// SendJSONError sends a standardized JSON error response and logs the internal error.
// For 5xx errors the client never sees the internal error text.
func SendJSONError(c *gin.Context, log *zap.SugaredLogger, statusCode int, publicMsg string, internalError error, details ...string) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	errorDetails := ""
	if len(details) > 0 {
		errorDetails = details[0]
	}

	response := gin.H{"code": statusCode, "error": publicMsg}
	if errorDetails != "" {
		response["details"] = errorDetails
	}

	path := ""
	if c.Request != nil && c.Request.URL != nil {
		path = c.Request.URL.Path
	}
	if internalError != nil {
		log.Errorw("Handler error", "status_code", statusCode, "public_message", publicMsg,
			"internal_error", internalError, "details", errorDetails, "path", path)
		_ = c.Error(internalError)
	} else {
		log.Infow("Handler response", "status_code", statusCode, "public_message", publicMsg,
			"details", errorDetails, "path", path)
	}

	if statusCode >= http.StatusInternalServerError {
		if publicMsg == "" || (internalError != nil && publicMsg == internalError.Error()) {
			response["error"] = genericServerError
		}
	}

	c.AbortWithStatusJSON(statusCode, response)
}

// SendJSON writes the standard success envelope.
func SendJSON(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, gin.H{
		"code":    statusCode,
		"message": message,
		"data":    data,
	})
}
