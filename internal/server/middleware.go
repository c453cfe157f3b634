package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mercato/internal/storecontext"
)

// StoreContext resolves the store from the route and injects it into the
// request context. Every store-scoped handler relies on it.
func (s *Server) StoreContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param("store_id"))
		if raw == "" {
			raw = strings.TrimSpace(c.GetHeader("X-Store-Id"))
		}

		storeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || storeID <= 0 {
			AbortWithError(c, newValidationError("store_id", "invalid_store", "invalid store id"))
			return
		}

		ctx := storecontext.WithStoreID(c.Request.Context(), snowflake.ID(storeID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
