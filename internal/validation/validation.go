// Package validation provides input validation middleware for the HTTP API.
package validation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxWalletIDLength bounds wallet identifiers in URL params. Identifiers are
// opaque, but unbounded path segments make poor map keys.
const MaxWalletIDLength = 256

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// WalletParamMiddleware rejects malformed :id URL parameters early. Wallet
// ids are opaque strings, so the only checks are length and control bytes.
func WalletParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if len(id) > MaxWalletIDLength || strings.ContainsRune(id, '\x00') {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_wallet_id",
				"message": "wallet id is malformed",
			})
			return
		}
		c.Next()
	}
}
