package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ClientConfig is the public configuration the browser needs at startup.
type ClientConfig struct {
	PublishableKey string `json:"publishableKey"`
	ImageCloudName string `json:"imageCloudName"`
}

type ConfigHandler struct {
	cfg ClientConfig
}

func NewConfigHandler(cfg ClientConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Get returns the public client configuration.
//
// @Summary      Client configuration
// @Tags         meta
// @Produce      json
// @Success      200  {object}  ClientConfig
// @Router       /config [get]
func (h *ConfigHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, envelope{Data: h.cfg})
}
