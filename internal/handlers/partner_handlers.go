package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// PartnerHandlers handles partner-related HTTP requests. Partner management
// is a platform-operator surface, not a workspace one.
type PartnerHandlers struct {
	partnerService services.PartnerService
}

// NewPartnerHandlers creates a new partner handlers instance
func NewPartnerHandlers(partnerService services.PartnerService) *PartnerHandlers {
	return &PartnerHandlers{partnerService: partnerService}
}

// CreatePartnerRequest represents the partner creation request payload
type CreatePartnerRequest struct {
	Name            string  `json:"name" validate:"required"`
	Subdomain       string  `json:"subdomain" validate:"required"`
	BillingMode     string  `json:"billing_mode"`
	FallbackEnabled bool    `json:"fallback_enabled"`
	MarginPercent   float64 `json:"margin_percent"`
}

// CreatePartner handles POST /partners
func (h *PartnerHandlers) CreatePartner(c echo.Context) error {
	var req CreatePartnerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}
	if err := common.ValidateRequiredString(req.Subdomain, "subdomain"); err != nil {
		return common.SendValidationError(c, "subdomain", err.Error())
	}

	partner := &models.Partner{
		Name:            req.Name,
		Subdomain:       req.Subdomain,
		BillingMode:     req.BillingMode,
		FallbackEnabled: req.FallbackEnabled,
		MarginPercent:   req.MarginPercent,
	}
	created, err := h.partnerService.Create(c.Request().Context(), partner)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// GetPartner handles GET /partners/:id
func (h *PartnerHandlers) GetPartner(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	partner, err := h.partnerService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendNotFoundError(c, "Partner")
	}
	return c.JSON(http.StatusOK, partner)
}

// UpdatePartnerRequest represents the partner update request payload
type UpdatePartnerRequest struct {
	Name            *string  `json:"name"`
	Status          *string  `json:"status"`
	BillingMode     *string  `json:"billing_mode"`
	FallbackEnabled *bool    `json:"fallback_enabled"`
	MarginPercent   *float64 `json:"margin_percent"`
}

// UpdatePartner handles PUT /partners/:id
func (h *PartnerHandlers) UpdatePartner(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdatePartnerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ctx := c.Request().Context()
	partner, err := h.partnerService.GetByID(ctx, id)
	if err != nil {
		return common.SendNotFoundError(c, "Partner")
	}

	if req.Name != nil {
		partner.Name = *req.Name
	}
	if req.Status != nil {
		partner.Status = *req.Status
	}
	if req.BillingMode != nil {
		partner.BillingMode = *req.BillingMode
	}
	if req.FallbackEnabled != nil {
		partner.FallbackEnabled = *req.FallbackEnabled
	}
	if req.MarginPercent != nil {
		partner.MarginPercent = *req.MarginPercent
	}

	if err := h.partnerService.Update(ctx, partner); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update partner")
	}
	return c.JSON(http.StatusOK, partner)
}

// DeletePartner handles DELETE /partners/:id
func (h *PartnerHandlers) DeletePartner(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.partnerService.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPartners handles GET /partners
func (h *PartnerHandlers) ListPartners(c echo.Context) error {
	limit, offset := paginationParams(c)
	partners, err := h.partnerService.List(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list partners")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"partners": partners,
		"limit":    limit,
		"offset":   offset,
	})
}
