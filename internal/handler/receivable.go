package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

type createReceivableReq struct {
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=255"`
	Amount      string `json:"amount" binding:"required"`
	DueDate     string `json:"due_date"`
}

type settleReceivableReq struct {
	AccountID string `json:"account_id" binding:"required"`
}

// ListReceivables 列出应收款，?status=pending|paid
func (h *LedgerHandler) ListReceivables(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	status := c.Query("status")
	if status != models.ReceivablePending && status != models.ReceivablePaid {
		status = ""
	}
	list, err := h.Ledger.ListReceivables(c.Request.Context(), user.UID, status)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"items": list,
	})
}

// CreateReceivable 新增一笔应收款
func (h *LedgerHandler) CreateReceivable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createReceivableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	r, err := h.Ledger.CreateReceivable(c.Request.Context(), user.UID, ledger.NewReceivable{
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"receivable": r,
	})
}

// SettleReceivable 收款入账
func (h *LedgerHandler) SettleReceivable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req settleReceivableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	res, err := h.Ledger.SettleReceivable(c.Request.Context(), user.UID, c.Param("id"), req.AccountID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"receivable": res.Receivable,
		"account":    res.Account,
		"entry":      res.Entry,
	})
}

// DeleteReceivable 删除应收款
func (h *LedgerHandler) DeleteReceivable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteReceivable(c.Request.Context(), user.UID, c.Param("id")); err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"message": "deleted",
	})
}
