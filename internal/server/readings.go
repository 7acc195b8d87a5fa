package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/waterbill/internal/billing"
)

type submitReadingRequest struct {
	Reading *float64 `json:"reading"`
}

// SubmitReading computes the invoice for the current period from a meter
// reading, persists it, and returns both the record and the rendered text.
func (s *Server) SubmitReading(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))
	if subscriberID == "" {
		AbortWithError(c, newValidationError("id", "invalid_subscriber_id", "invalid subscriber id"))
		return
	}

	var req submitReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reading == nil {
		AbortWithError(c, newValidationError("reading", "invalid_reading", "reading must be a number"))
		return
	}
	if *req.Reading < 0 {
		AbortWithError(c, newValidationError("reading", "invalid_reading", "reading must not be negative"))
		return
	}

	if _, err := s.store.GetSubscriber(subscriberID); err != nil {
		AbortWithError(c, err)
		return
	}

	inv, err := s.billingSvc.ComputeInvoice(subscriberID, *req.Reading)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.store.SaveInvoice(inv); err != nil {
		AbortWithError(c, err)
		return
	}

	cmp := s.billingSvc.ComparisonFor(inv)
	c.JSON(http.StatusOK, gin.H{
		"data":    inv,
		"message": billing.RenderInvoice(inv, s.billingSvc.Tariff(), cmp),
	})
}
