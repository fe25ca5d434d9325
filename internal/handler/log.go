package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// LogHandler 负责日志查询接口
type LogHandler struct {
	DB         *gorm.DB
	EncryptKey string
}

func NewLogHandler(db *gorm.DB, encryptKey string) *LogHandler {
	return &LogHandler{
		DB:         db,
		EncryptKey: encryptKey,
	}
}

type logResp struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

func pageParams(c *gin.Context, def int) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(def)))
	if size <= 0 || size > 100 {
		size = def
	}
	return page, size
}

// ListLogs 列出当前用户的操作日志（分页 + 时间 + 关键字）
func (h *LogHandler) ListLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, size := pageParams(c, 20)

	base := h.DB.Model(&models.AuditLog{}).Where("user_id = ?", user.UID)

	// 时间筛选：start / end（格式 YYYY-MM-DD）
	if s := c.Query("start"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "start must be YYYY-MM-DD")
			return
		}
		base = base.Where("created_at >= ?", t)
	}
	if s := c.Query("end"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "end must be YYYY-MM-DD")
			return
		}
		base = base.Where("created_at < ?", t.AddDate(0, 0, 1))
	}

	// path / action 只存密文，关键字只能解密后在内存里匹配
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	var logs []models.AuditLog
	if err := base.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]logResp, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		item := logResp{
			ID:        l.ID,
			Path:      util.DecryptField(h.EncryptKey, l.PathEnc),
			Action:    util.DecryptField(h.EncryptKey, l.ActionEnc),
			Method:    l.Method,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		}
		if q != "" && !strings.Contains(strings.ToLower(item.Path+" "+item.Action), q) {
			continue
		}
		items = append(items, item)
	}

	total := len(items)
	items = paginate(items, page, size)

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// historyRoutes 把记账接口映射成可读的操作名
var historyRoutes = []struct {
	method, prefix, suffix, operation string
}{
	{http.MethodPost, "/api/transactions", "", "Recorded transaction"},
	{http.MethodDelete, "/api/transactions/", "", "Deleted transaction"},
	{http.MethodPost, "/api/transfers", "", "Transfer"},
	{http.MethodPost, "/api/accounts", "", "Created account"},
	{http.MethodPut, "/api/accounts/", "", "Edited account"},
	{http.MethodPost, "/api/payables/", "/pay", "Paid payable"},
	{http.MethodPost, "/api/payables/", "/add", "Added to payable"},
	{http.MethodPost, "/api/payables", "", "Created payable"},
	{http.MethodPost, "/api/receivables/", "/settle", "Settled receivable"},
	{http.MethodPost, "/api/receivables", "", "Created receivable"},
	{http.MethodDelete, "/api/receivables/", "", "Deleted receivable"},
	{http.MethodPost, "/api/backups/", "/restore", "Restored backup"},
}

func historyOperation(method, path string) string {
	for _, r := range historyRoutes {
		if method != r.method || !strings.HasPrefix(path, r.prefix) {
			continue
		}
		if r.suffix != "" && !strings.HasSuffix(path, r.suffix) {
			continue
		}
		// exact collection paths must not swallow member paths
		if !strings.HasSuffix(r.prefix, "/") && path != r.prefix {
			continue
		}
		return r.operation
	}
	return ""
}

type historyResp struct {
	ID          uint      `json:"id"`
	Operation   string    `json:"operation"`
	Amount      string    `json:"amount,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	IP          string    `json:"ip"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListHistory 查询记账相关的历史操作（只看改动余额或流水的请求）
func (h *LogHandler) ListHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, size := pageParams(c, 50)

	var logs []models.AuditLog
	if err := h.DB.Where("user_id = ? AND method IN ?", user.UID,
		[]string{http.MethodPost, http.MethodPut, http.MethodDelete}).
		Order("created_at DESC, id DESC").
		Find(&logs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]historyResp, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		op := historyOperation(l.Method, util.DecryptField(h.EncryptKey, l.PathEnc))
		if op == "" {
			continue
		}
		item := historyResp{
			ID:        l.ID,
			Operation: op,
			IP:        l.IP,
			CreatedAt: l.CreatedAt,
		}

		// action 形如 "POST /api/transfers {...}"，取出请求体里的金额等信息
		action := util.DecryptField(h.EncryptKey, l.ActionEnc)
		if start, end := strings.Index(action, "{"), strings.LastIndex(action, "}"); start >= 0 && end > start {
			var body map[string]interface{}
			if json.Unmarshal([]byte(action[start:end+1]), &body) == nil {
				if v, ok := body["amount"].(string); ok {
					item.Amount = v
				}
				if v, ok := body["category"].(string); ok {
					item.Category = v
				}
				if v, ok := body["description"].(string); ok {
					item.Description = v
				}
			}
		}
		items = append(items, item)
	}

	total := len(items)
	items = paginate(items, page, size)

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}
