package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// currentUser 取出 AuthMiddleware 放入的用户；没有时直接写 401
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get("currentUser")
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not signed in")
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not signed in")
		return nil, false
	}
	return user, true
}

// rejected are the business rules a well-formed request can still break.
var rejected = []error{
	ledger.ErrInsufficientFunds,
	ledger.ErrOverpayment,
	ledger.ErrAlreadySettled,
	ledger.ErrSelfTransfer,
}

// ledgerError writes the envelope for an error returned by the ledger.
func ledgerError(c *gin.Context, err error) {
	for _, r := range rejected {
		if errors.Is(err, r) {
			util.Error(c, http.StatusUnprocessableEntity, util.CodeRejected, r.Error())
			return
		}
	}
	switch {
	case ledger.IsNotFound(err):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, err.Error())
	case ledger.IsValidation(err):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		util.Error(c, http.StatusConflict, util.CodeConflict, ledger.ErrConflict.Error())
	default:
		log.Printf("handler: %s %s: %v", c.Request.Method, c.FullPath(), err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "server error, please retry")
	}
}
