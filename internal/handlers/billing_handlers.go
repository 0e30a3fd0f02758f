package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// BillingHandlers handles subscription and credit HTTP requests
type BillingHandlers struct {
	billingService services.BillingService
}

// NewBillingHandlers creates a new billing handlers instance
func NewBillingHandlers(billingService services.BillingService) *BillingHandlers {
	return &BillingHandlers{billingService: billingService}
}

// ListPlans handles GET /billing/plans
func (h *BillingHandlers) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": h.billingService.ListPlans(),
	})
}

// SubscribeRequest represents the subscription request payload
type SubscribeRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// Subscribe handles POST /billing/subscription
func (h *BillingHandlers) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Plan, "plan"); err != nil {
		return common.SendValidationError(c, "plan", err.Error())
	}

	subscription, err := h.billingService.Subscribe(ctx, workspaceID, req.Plan)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusCreated, subscription)
}

// GetSubscription handles GET /billing/subscription
func (h *BillingHandlers) GetSubscription(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	subscription, err := h.billingService.GetSubscription(ctx, workspaceID)
	if err != nil {
		return common.SendNotFoundError(c, "Subscription")
	}
	return c.JSON(http.StatusOK, subscription)
}

// CancelSubscription handles DELETE /billing/subscription
func (h *BillingHandlers) CancelSubscription(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.billingService.CancelSubscription(ctx, workspaceID); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

// GetCredits handles GET /billing/credits
func (h *BillingHandlers) GetCredits(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	credits, err := h.billingService.GetCredits(ctx, workspaceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load credit balance")
	}
	return c.JSON(http.StatusOK, credits)
}

// PurchaseCreditsRequest represents the credit purchase request payload
type PurchaseCreditsRequest struct {
	AmountCents int `json:"amount_cents" validate:"required,gt=0"`
}

// PurchaseCredits handles POST /billing/credits/purchase. The wallet is
// credited when Stripe confirms the payment through the webhook, not here.
func (h *BillingHandlers) PurchaseCredits(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req PurchaseCreditsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.AmountCents <= 0 {
		return common.SendValidationError(c, "amount_cents", "amount must be positive")
	}

	intent, err := h.billingService.PurchaseCredits(ctx, workspaceID, req.AmountCents)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, intent)
}

// ListCreditTransactions handles GET /billing/credits/transactions
func (h *BillingHandlers) ListCreditTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	transactions, err := h.billingService.ListCreditTransactions(ctx, workspaceID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list transactions")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}
