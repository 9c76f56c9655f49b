package audit

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"LABIS-backend/internal/platform/auth"
)

// Middleware: 更新系リクエスト（GET/HEAD/OPTIONS以外）を監査ログに残す。
// 記録失敗でレスポンスは失敗させない（ログだけ残す）。
func Middleware(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case "GET", "HEAD", "OPTIONS":
			return
		}

		e := Entry{
			UserID:    auth.Username(c),
			Action:    c.Request.Method + " " + c.FullPath(),
			Details:   fmt.Sprintf("status=%d path=%s", c.Writer.Status(), c.Request.URL.Path),
			IPAddress: c.ClientIP(),
			Timestamp: time.Now().UTC(),
		}
		if err := store.Insert(c.Request.Context(), e); err != nil {
			log.Printf("[WARN] audit insert failed: %v", err)
		}
	}
}
