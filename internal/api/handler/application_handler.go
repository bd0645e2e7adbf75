package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patricktravel/portal/internal/core/ports"
	"github.com/patricktravel/portal/internal/i18n"
)

// HeaderIdempotencyKey lets clients retry a submission without duplicating it.
const HeaderIdempotencyKey = "Idempotency-Key"

// ApplicationHandler handles HTTP requests for visa applications.
type ApplicationHandler struct {
	service ports.ApplicationService
}

func NewApplicationHandler(service ports.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Submit handles POST /api/applications.
//
// @Summary      Submit a visa application
// @Tags         applications
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        Idempotency-Key  header    string                    false  "Client-generated key for safe retries"
// @Param        body             body      submitApplicationRequest  true   "Completed application form"
// @Success      201              {object}  submitApplicationResponse
// @Success      200              {object}  submitApplicationResponse
// @Failure      400              {object}  map[string]string
// @Failure      422              {object}  map[string]string
// @Failure      500              {object}  map[string]string
// @Router       /api/applications [post]
func (h *ApplicationHandler) Submit(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req submitApplicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := req.checkDocuments(); err != nil {
		return err
	}

	receipt, err := h.service.Submit(c.Request().Context(), ports.SubmitApplicationInput{
		UserID:         userID,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey)),
		Submission:     req.toDomain(),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if receipt.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, submitApplicationResponse{
		Message:     localize(c, i18n.KeyApplicationQueued),
		Application: receipt,
		Links:       applicationLinks{Self: "/api/applications/" + receipt.Reference},
	})
}

// Get handles GET /api/applications/:reference.
//
// @Summary      Get one of the caller's applications
// @Tags         applications
// @Produce      json
// @Security     CookieAuth
// @Param        reference  path      string  true  "Application reference (e.g. PT-1A2B3C4D)"
// @Success      200        {object}  domain.Application
// @Failure      404        {object}  map[string]string
// @Router       /api/applications/{reference} [get]
func (h *ApplicationHandler) Get(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	app, err := h.service.Get(c.Request().Context(), userID, c.Param("reference"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, app)
}
