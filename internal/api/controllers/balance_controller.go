package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/models/request_models"
	"hairsim/internal/models/response_models"
	"hairsim/internal/services"
	"hairsim/pkg/utils"
)

type BalanceController struct {
	ledger services.LedgerServiceInterface
	gate   services.GateServiceInterface
}

func NewBalanceController(ledger services.LedgerServiceInterface, gate services.GateServiceInterface) *BalanceController {
	return &BalanceController{
		ledger: ledger,
		gate:   gate,
	}
}

func (b *BalanceController) GetBalance(c *gin.Context) {
	accountID := c.GetString("account_id")

	balance, err := b.ledger.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.BalanceResponse{AccountID: accountID, Balance: balance}, "Balance fetched successfully")
}

// CheckGate godoc
// @Summary Check whether the balance covers a service before running it
// @Tags Balance
// @Produce json
// @Param service query string true "report_generation or image_generation"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /balance/gate [get]
func (b *BalanceController) CheckGate(c *gin.Context) {
	service, err := domain_models.ParseServiceType(c.Query("service"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "service must be report_generation or image_generation")
		return
	}

	decision, err := b.gate.Check(c.Request.Context(), c.GetString("account_id"), service)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, decision, "Gate checked successfully")
}

func (b *BalanceController) ListTransactions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	txns, err := b.ledger.Transactions(c.Request.Context(), c.GetString("account_id"), limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.TransactionsResponse{Transactions: txns}, "Transactions fetched successfully")
}

// Credit tops up an account. Admin only.
func (b *BalanceController) Credit(c *gin.Context) {
	var request request_models.CreditRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	balance, err := b.ledger.Credit(c.Request.Context(), request.AccountID, request.Amount)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.BalanceResponse{AccountID: request.AccountID, Balance: balance}, "Balance credited successfully")
}
