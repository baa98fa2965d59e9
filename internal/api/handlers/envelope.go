package handlers

import (
	"github.com/gin-gonic/gin"
)

// Every REST response wraps its payload in the same envelope so clients can
// branch on status without inspecting HTTP codes.
type responseEnvelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondSuccess(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, responseEnvelope{Status: "success", Message: message, Data: data})
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, responseEnvelope{Status: "error", Message: message})
}
