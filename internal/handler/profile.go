package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// UpdateProfileReq 更新基本资料请求
type UpdateProfileReq struct {
	Name     string `json:"name" binding:"max=128"`
	PhotoURL string `json:"photo_url" binding:"omitempty,url,max=1024"`
}

// UpdateProfile 更新当前用户的显示名称和头像
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
			return
		}

		fields := map[string]interface{}{
			"name": strings.TrimSpace(req.Name),
		}
		if req.PhotoURL != "" {
			fields["photo_url"] = req.PhotoURL
		}
		if err := db.Model(user).Updates(fields).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
			return
		}

		user.Name = fields["name"].(string)
		if req.PhotoURL != "" {
			user.PhotoURL = req.PhotoURL
		}

		util.Success(c, util.Response{
			"user": userResp(user),
		})
	}
}
