package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// TokenCookie is the cookie a browser client may carry the session token in.
const TokenCookie = "fin_token"

// AuthMiddleware 校验会话 JWT 及其 session 记录，并在 context 里放入当前用户。
func AuthMiddleware(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		// 1) Header: Authorization: Bearer xxx
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}

		// 2) URL 查询参数 ?token=xxx（下载和 EventSource 无法自定义 Header）
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}

		// 3) Cookie
		if tokenStr == "" {
			if cookie, err := c.Cookie(TokenCookie); err == nil {
				tokenStr = cookie
			}
		}

		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not signed in")
			c.Abort()
			return
		}

		claims, err := util.ParseToken(jwtSecret, tokenStr)
		if err != nil || claims.UID == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "session expired, please sign in again")
			c.Abort()
			return
		}

		// 登出或过期的 session 即使 token 未过期也拒绝
		var session models.Session
		err = db.Preload("User").
			Where("id = ? AND user_id = ?", claims.SessionID, claims.UID).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "session expired, please sign in again")
			} else {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not load session")
			}
			c.Abort()
			return
		}
		if session.Revoked || !session.ExpiresAt.After(time.Now()) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "session expired, please sign in again")
			c.Abort()
			return
		}

		user := session.User
		c.Set("currentUser", &user)
		c.Set("sessionID", session.ID)
		c.Next()
	}
}
