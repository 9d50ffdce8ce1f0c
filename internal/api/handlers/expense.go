package handlers

import (
	"net/http"

	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ExpenseHandler serves one expense kind; the router mounts one per kind.
type ExpenseHandler struct {
	expenseService *services.ExpenseService
	validator      *validator.Validate
	label          string
}

func NewExpenseHandler(expenseService *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		validator:      validator.New(),
		label:          string(expenseService.Kind()) + " expense",
	}
}

func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	if c.Param("id") != "" {
		h.GetExpense(c)
		return
	}

	expenses, err := h.expenseService.GetAllExpenses(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, expenses)
}

func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	id, ok := requireID(c, h.label)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, expense)
}

func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req services.CreateExpenseRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, utils.MsgCreated, expense)
}

func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	id, ok := requireID(c, h.label)
	if !ok {
		return
	}

	var req services.UpdateExpenseRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgUpdated, expense)
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	id, ok := requireID(c, h.label)
	if !ok {
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgDeleted, gin.H{"id": id})
}
