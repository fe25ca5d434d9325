package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

type createPayableReq struct {
	AccountName string `json:"accountName" binding:"required,max=64"`
	Balance     string `json:"balance" binding:"required"`
	DueDate     string `json:"dueDate" binding:"required"`
	Category    string `json:"category" binding:"required,max=32"`
}

type payPayableReq struct {
	AccountID string `json:"account_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type addPayableReq struct {
	Amount string `json:"amount" binding:"required"`
}

// ListPayables 列出应付款，按到期日排序
func (h *LedgerHandler) ListPayables(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.Ledger.ListPayables(c.Request.Context(), user.UID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"items": list,
	})
}

// CreatePayable 新增一笔应付款
func (h *LedgerHandler) CreatePayable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createPayableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	p, err := h.Ledger.CreatePayable(c.Request.Context(), user.UID, ledger.NewPayable{
		AccountName: req.AccountName,
		Balance:     req.Balance,
		DueDate:     req.DueDate,
		Category:    req.Category,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"payable": p,
	})
}

// PayPayable 从账户支付应付款
func (h *LedgerHandler) PayPayable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req payPayableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	res, err := h.Ledger.PayPayable(c.Request.Context(), user.UID, c.Param("id"), req.AccountID, req.Amount)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"payable": res.Payable,
		"account": res.Account,
		"entry":   res.Entry,
	})
}

// AddToPayable 增加应付款余额（新产生的欠款）
func (h *LedgerHandler) AddToPayable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req addPayableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	res, err := h.Ledger.AddToPayable(c.Request.Context(), user.UID, c.Param("id"), req.Amount)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"payable": res.Payable,
		"entry":   res.Entry,
	})
}
