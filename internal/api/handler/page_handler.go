package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Sections are the portal areas rendered by the front end. The server only
// answers with a placeholder so the route guard has something to protect.
var Sections = []string{
	"/visa-assistance",
	"/visa-assistance/application",
	"/study-abroad",
	"/flight-booking",
	"/housing",
	"/jobs",
}

type pageResponse struct {
	Page          string `json:"page"`
	Authenticated bool   `json:"authenticated"`
}

// PageHandler serves the section placeholders.
type PageHandler struct{}

func NewPageHandler() *PageHandler { return &PageHandler{} }

func (h *PageHandler) Section(c echo.Context) error {
	_, err := ctxUserID(c)
	return c.JSON(http.StatusOK, pageResponse{Page: c.Path(), Authenticated: err == nil})
}
