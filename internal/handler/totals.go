package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// GetTotals 返回账户、应付、应收三项合计
func (h *LedgerHandler) GetTotals(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	t, err := h.Ledger.Totals(c.Request.Context(), user.UID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"totals": t,
	})
}

// GetDashboard 首页汇总：合计 + 时间段收支 + 最近流水。
// 默认当月；?start=&end= 为 YYYY-MM-DD，end 含当天。
func (h *LedgerHandler) GetDashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0)

	if s := c.Query("start"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, now.Location())
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "start must be YYYY-MM-DD")
			return
		}
		start = t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, now.Location())
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "end must be YYYY-MM-DD")
			return
		}
		end = t.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "start must be before end")
		return
	}
	recent, _ := strconv.Atoi(c.DefaultQuery("recent", "5"))
	if recent > 50 {
		recent = 50
	}

	d, err := h.Ledger.Dashboard(c.Request.Context(), user.UID, start, end, recent)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"dashboard": d,
	})
}
