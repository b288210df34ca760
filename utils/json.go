package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes the standard success envelope around a payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "ok",
		"data": data,
	})
}

// Fail writes the standard error envelope.
func Fail(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code": -1,
		"msg":  err.Error(),
	})
}
