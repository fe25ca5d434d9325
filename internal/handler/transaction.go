package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

type createTransactionReq struct {
	AccountID    string `json:"account_id" binding:"required"`
	Type         string `json:"type" binding:"required,oneof=income expense transfer"`
	Amount       string `json:"amount" binding:"required"`
	Category     string `json:"category" binding:"max=32"`
	Description  string `json:"description" binding:"max=255"`
	DateIncurred string `json:"date_incurred"`
}

type transferReq struct {
	FromAccountID string `json:"from_account_id" binding:"required"`
	ToAccountID   string `json:"to_account_id" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Fee           string `json:"fee"`
	Description   string `json:"description" binding:"max=255"`
}

// ---------- 记一笔 ----------

// CreateTransaction 记录收入/支出，并同步账户余额
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createTransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	res, err := h.Ledger.RecordTransaction(c.Request.Context(), user.UID, ledger.TransactionInput{
		AccountID:    req.AccountID,
		Type:         req.Type,
		Amount:       req.Amount,
		Category:     req.Category,
		Description:  req.Description,
		DateIncurred: req.DateIncurred,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"account": res.Account,
		"entry":   res.Entry,
	})
}

// ListTransactions 查询流水列表，支持时间范围、类型、账户、类别筛选和排序
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	// 分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.PageSize)))

	f := ledger.TransactionFilter{
		Type:      c.Query("type"),
		AccountID: c.Query("account_id"),
		Category:  c.Query("category"),
		Sort:      c.Query("sort"),
		Page:      page,
		PageSize:  size,
	}

	// 时间筛选：start / end，格式 YYYY-MM-DD，end 含当天
	if s := c.Query("start"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "start must be YYYY-MM-DD")
			return
		}
		f.Start = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "end must be YYYY-MM-DD")
			return
		}
		t = t.AddDate(0, 0, 1)
		f.End = &t
	}

	res, err := h.Ledger.ListTransactions(c.Request.Context(), user.UID, f)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"items": res.Items,
		"total": res.Total,
		"page":  res.Page,
		"size":  res.Size,
	})
}

// DeleteTransaction 删除一条流水（不回滚余额）
func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteTransaction(c.Request.Context(), user.UID, c.Param("id")); err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"message": "deleted",
	})
}

// ---------- 转账 ----------

// CreateTransfer 账户间转账，可带手续费
func (h *LedgerHandler) CreateTransfer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	res, err := h.Ledger.Transfer(c.Request.Context(), user.UID, ledger.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Fee:           req.Fee,
		Description:   req.Description,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"from":    res.From,
		"to":      res.To,
		"entries": res.Entries,
	})
}
