package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

func userResp(user *models.User) gin.H {
	return gin.H{
		"uid":        user.UID,
		"name":       user.Name,
		"email":      user.Email,
		"photo_url":  user.PhotoURL,
		"created_at": user.CreatedAt,
	}
}

// GetMe 返回当前登录用户信息（需要经过 AuthMiddleware）
func GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	util.Success(c, util.Response{
		"user": userResp(user),
	})
}
