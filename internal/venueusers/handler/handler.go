package handler

import (
	"errors"
	"io"

	"venue_backend/internal/venueusers/ports"
	"venue_backend/internal/venueusers/transport"
	"venue_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const msgProvisioned = "Venue user created successfully"

type Handler struct {
	svc ports.Provisioner
}

func New(svc ports.Provisioner) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the provisioning endpoint at path. guards run before
// POST only; OPTIONS always answers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, path string, guards ...gin.HandlerFunc) {
	rg.OPTIONS(path, httpkit.PreflightOK)

	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			chain = append(chain, g)
		}
	}
	rg.POST(path, append(chain, h.Provision)...)
}

func (h *Handler) Provision(c *gin.Context) {
	var req transport.ProvisionRequest
	// An empty body is treated like {} so it fails field validation instead.
	// Any other decode failure is unexpected and ends up as a 500.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.HandleError(c, err)
		return
	}

	result, err := h.svc.Provision(c.Request.Context(), ports.ProvisionInput{
		Email:    req.Email,
		Password: req.Password,
		VenueID:  req.VenueID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ProvisionResponse{
		Success: true,
		UserID:  result.UserID,
		Message: msgProvisioned,
	})
}
