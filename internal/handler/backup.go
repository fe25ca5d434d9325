package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// BackupHandler 负责备份相关接口
type BackupHandler struct {
	DB         *gorm.DB
	EncryptKey string
	BackupDir  string
	Feed       feed.Publisher
}

// NewBackupHandler 构造函数
func NewBackupHandler(db *gorm.DB, encryptKey, backupDir string, pub feed.Publisher) *BackupHandler {
	return &BackupHandler{
		DB:         db,
		EncryptKey: encryptKey,
		BackupDir:  backupDir,
		Feed:       pub,
	}
}

// backupData 是写入备份文件的内容结构
type backupData struct {
	UserID       string               `json:"user_id"`
	Created      time.Time            `json:"created"`
	Accounts     []models.Account     `json:"accounts"`
	Transactions []models.Transaction `json:"transactions"`
	Payables     []models.Payable     `json:"payables"`
	Receivables  []models.Receivable  `json:"receivables"`
}

func (h *BackupHandler) snapshot(db *gorm.DB, uid string) (*backupData, error) {
	data := &backupData{UserID: uid, Created: time.Now()}
	steps := []struct {
		dest  interface{}
		order string
	}{
		{&data.Accounts, "created_at ASC"},
		{&data.Transactions, "date_incurred ASC, created_at ASC"},
		{&data.Payables, "created_at ASC"},
		{&data.Receivables, "created_at ASC"},
	}
	for _, s := range steps {
		if err := db.Where("user_id = ?", uid).Order(s.order).Find(s.dest).Error; err != nil {
			return nil, err
		}
	}
	return data, nil
}

// findBackup 查询当前用户的备份记录，失败时已写好响应
func (h *BackupHandler) findBackup(c *gin.Context, uid string) (*models.Backup, bool) {
	var backup models.Backup
	if err := h.DB.
		Where("id = ? AND user_id = ?", c.Param("id"), uid).
		First(&backup).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return nil, false
	}
	return &backup, true
}

// CreateBackup 生成当前用户的加密备份文件
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	// 一个读事务里取四个集合，保证快照一致
	var data *backupData
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		data, err = h.snapshot(tx, user.UID)
		return err
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not read data")
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "serialization failed")
		return
	}
	enc, err := util.EncryptAES(h.EncryptKey, raw)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "encryption failed")
		return
	}

	if err := os.MkdirAll(h.BackupDir, 0o755); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not create backup dir")
		return
	}

	// 使用 uuid 作为文件名，不暴露 uid
	fileName := fmt.Sprintf("backup-%s.bin", uuid.NewString())
	filePath := filepath.Join(h.BackupDir, fileName)
	if err := os.WriteFile(filePath, enc, 0o600); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not write backup file")
		return
	}

	backup := models.Backup{
		UserID:   user.UID,
		FileName: fileName,
		FilePath: filePath,
		Size:     int64(len(enc)),
	}
	if err := h.DB.Create(&backup).Error; err != nil {
		_ = os.Remove(filePath)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not save backup record")
		return
	}

	util.Success(c, util.Response{
		"backup": gin.H{
			"id":         backup.ID,
			"file_name":  backup.FileName,
			"size":       backup.Size,
			"created_at": backup.CreatedAt,
		},
	})
}

// ListBackups 列出当前用户已有的备份
func (h *BackupHandler) ListBackups(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var list []models.Backup
	if err := h.DB.
		Where("user_id = ?", user.UID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		b := &list[i]
		items = append(items, gin.H{
			"id":         b.ID,
			"file_name":  b.FileName,
			"size":       b.Size,
			"created_at": b.CreatedAt,
		})
	}

	util.Success(c, util.Response{
		"items": items,
	})
}

// DownloadBackup 下载指定备份文件（仍是密文）
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.findBackup(c, user.UID)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", backup.FileName))
	c.File(backup.FilePath)
}

// DeleteBackup 删除备份记录及对应文件
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.findBackup(c, user.UID)
	if !ok {
		return
	}

	// 先删文件，再删记录
	_ = os.Remove(backup.FilePath)
	if err := h.DB.Delete(backup).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not delete backup record")
		return
	}

	util.Success(c, util.Response{
		"message": "deleted",
	})
}

// restoreOrder lists the collections a restore replaces, children first.
var restoreOrder = []struct {
	collection string
	model      interface{}
}{
	{models.CollectionTransactions, &models.Transaction{}},
	{models.CollectionAccounts, &models.Account{}},
	{models.CollectionPayables, &models.Payable{}},
	{models.CollectionReceivables, &models.Receivable{}},
}

// RestoreBackup 用备份替换当前用户的账户、流水、应付、应收
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.findBackup(c, user.UID)
	if !ok {
		return
	}

	// 读文件并解密
	encData, err := os.ReadFile(backup.FilePath)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not read backup file")
		return
	}
	raw, err := util.DecryptAES(h.EncryptKey, encData)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not decrypt backup file")
		return
	}
	var data backupData
	if err := json.Unmarshal(raw, &data); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not parse backup")
		return
	}

	// 备份中记录的 user_id 必须等于当前用户
	if data.UserID != "" && data.UserID != user.UID {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "backup belongs to another user")
		return
	}

	var events []feed.Event
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		// 记下恢复前的文档，恢复后不在快照里的要通知删除
		before := make(map[string][]string)
		for _, m := range restoreOrder {
			var ids []string
			if err := tx.Model(m.model).Where("user_id = ?", user.UID).Pluck("id", &ids).Error; err != nil {
				return err
			}
			before[m.collection] = ids
			if err := tx.Where("user_id = ?", user.UID).Delete(m.model).Error; err != nil {
				return err
			}
		}

		restored := make(map[string]map[string]bool)
		created := func(collection, id string) {
			if restored[collection] == nil {
				restored[collection] = make(map[string]bool)
			}
			restored[collection][id] = true
		}
		for i := range data.Accounts {
			a := &data.Accounts[i]
			a.UserID, a.Version = user.UID, 0
			if err := tx.Create(a).Error; err != nil {
				return err
			}
			created(models.CollectionAccounts, a.ID)
		}
		for i := range data.Transactions {
			t := &data.Transactions[i]
			t.UserID = user.UID
			if err := tx.Create(t).Error; err != nil {
				return err
			}
			created(models.CollectionTransactions, t.ID)
		}
		for i := range data.Payables {
			p := &data.Payables[i]
			p.UserID, p.Version = user.UID, 0
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			created(models.CollectionPayables, p.ID)
		}
		for i := range data.Receivables {
			r := &data.Receivables[i]
			r.UserID, r.Version = user.UID, 0
			if err := tx.Create(r).Error; err != nil {
				return err
			}
			created(models.CollectionReceivables, r.ID)
		}

		events = events[:0]
		for _, m := range restoreOrder {
			for _, id := range before[m.collection] {
				if !restored[m.collection][id] {
					events = append(events, feed.Event{Collection: m.collection, ID: id, Op: feed.OpDelete})
				}
			}
		}
		for _, m := range restoreOrder {
			for id := range restored[m.collection] {
				events = append(events, feed.Event{Collection: m.collection, ID: id, Op: feed.OpCreate})
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("backup: restore %d for user %s: %v", backup.ID, user.UID, err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "restore failed")
		return
	}
	if h.Feed != nil && len(events) > 0 {
		h.Feed.Publish(user.UID, events...)
	}

	util.Success(c, util.Response{
		"message":            "restored",
		"accounts_count":     len(data.Accounts),
		"transactions_count": len(data.Transactions),
		"payables_count":     len(data.Payables),
		"receivables_count":  len(data.Receivables),
	})
}
