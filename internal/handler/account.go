package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// LedgerHandler 负责账户、流水、应付、应收相关接口
type LedgerHandler struct {
	Ledger   *ledger.Service
	PageSize int
}

func NewLedgerHandler(svc *ledger.Service, pageSize int) *LedgerHandler {
	return &LedgerHandler{
		Ledger:   svc,
		PageSize: pageSize,
	}
}

// ---------- 请求结构 ----------

type createAccountReq struct {
	Name    string `json:"name" binding:"required,max=64"`
	Type    string `json:"type" binding:"required"`
	Balance string `json:"balance"`
	Color   string `json:"color" binding:"max=16"`
}

type updateAccountReq struct {
	Name    *string `json:"name" binding:"omitempty,max=64"`
	Type    *string `json:"type"`
	Color   *string `json:"color" binding:"omitempty,max=16"`
	Balance *string `json:"balance"`
}

// ListAccounts 列出当前用户所有账户
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.Ledger.ListAccounts(c.Request.Context(), user.UID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"items": list,
	})
}

// CreateAccount 新建账户（初始余额不记流水）
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	acc, err := h.Ledger.CreateAccount(c.Request.Context(), user.UID, ledger.NewAccount{
		Name:    req.Name,
		Type:    req.Type,
		Balance: req.Balance,
		Color:   req.Color,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"account": acc,
	})
}

// GetAccount 查询单个账户
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	acc, err := h.Ledger.GetAccount(c.Request.Context(), user.UID, c.Param("id"))
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"account": acc,
	})
}

// UpdateAccount 修改账户；余额变化会生成一条 Balance Adjustment 流水
func (h *LedgerHandler) UpdateAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	acc, entry, err := h.Ledger.UpdateAccount(c.Request.Context(), user.UID, c.Param("id"), ledger.AccountUpdate{
		Name:    req.Name,
		Type:    req.Type,
		Color:   req.Color,
		Balance: req.Balance,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	resp := util.Response{
		"account": acc,
	}
	if entry != nil {
		resp["entry"] = entry
	}
	util.Success(c, resp)
}
