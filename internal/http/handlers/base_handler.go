// README: Base handler utilities (JSON envelope, apperr mapping, body binding).
package handlers

import (
	"github.com/gin-gonic/gin"

	"charterhub/internal/apperr"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, envelope{Success: true, Data: v})
}

// writeError maps err onto its HTTP status. Internal causes are attached to the
// gin context for the logging middleware and never echoed to the client.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), envelope{
		Error: &errorBody{Kind: kind, Message: apperr.Message(err)},
	})
}

// bind decodes the JSON body into v, answering 400 on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, apperr.Validation("invalid request body: "+err.Error()))
		return false
	}
	return true
}
