package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stanrainier/stan-finance-tracker/internal/config"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// AuthHandler 负责登录/登出相关接口
type AuthHandler struct {
	DB       *gorm.DB
	Auth     config.AuthConfig
	TokenTTL time.Duration
}

// NewAuthHandler 构造函数
func NewAuthHandler(db *gorm.DB, auth config.AuthConfig) *AuthHandler {
	ttlHours := auth.ExpireHours
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &AuthHandler{
		DB:       db,
		Auth:     auth,
		TokenTTL: time.Duration(ttlHours) * time.Hour,
	}
}

// ---------- 登录 ----------

type sessionReq struct {
	IDToken string `json:"id_token" binding:"required"`
}

// CreateSession trades an identity-provider ID token for a session token.
// The user row is created on first sign-in and its profile refreshed on
// every later one.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req sessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "id_token is required")
		return
	}

	claims, err := util.ParseIdentityToken(h.Auth.ProviderSecret, h.Auth.ProviderIssuer, strings.TrimSpace(req.IDToken))
	if err != nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "sign-in failed, please try again")
		return
	}

	user := models.User{
		UID:      claims.Subject,
		Name:     claims.Name,
		Email:    claims.Email,
		PhotoURL: claims.Picture,
	}
	now := time.Now()
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    user.UID,
		ExpiresAt: now.Add(h.TokenTTL),
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "photo_url", "updated_at"}),
		}).Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not start session")
		return
	}

	token, err := util.GenerateToken(h.Auth.Secret, h.Auth.Issuer, user.UID, session.ID, h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not issue token")
		return
	}

	util.Success(c, util.Response{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"user":       userResp(&user),
	})
}

// ---------- 登出 ----------

// Logout revokes the session the request was made with.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	sid := c.GetString("sessionID")
	if err := h.DB.Model(&models.Session{}).
		Where("id = ? AND user_id = ?", sid, user.UID).
		Update("revoked", true).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "logout failed")
		return
	}
	util.Success(c, util.Response{
		"message": "signed out",
	})
}
