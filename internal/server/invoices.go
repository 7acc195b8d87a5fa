package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/waterbill/internal/billing"
)

const defaultHistoryLimit = 5

func (s *Server) ListInvoices(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	invoices := s.store.InvoicesFor(subscriberID, limit)
	stats := s.store.StatsFor(subscriberID)
	c.JSON(http.StatusOK, gin.H{
		"data":    invoices,
		"message": billing.RenderHistory(invoices, stats, s.billingSvc.Tariff()),
	})
}

func (s *Server) GetInvoiceByPeriod(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))
	period := strings.TrimSpace(c.Param("period"))

	inv, err := s.store.InvoiceForPeriod(subscriberID, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cmp := s.billingSvc.ComparisonFor(inv)
	c.JSON(http.StatusOK, gin.H{
		"data":    inv,
		"message": billing.RenderInvoice(inv, s.billingSvc.Tariff(), cmp),
	})
}

func (s *Server) GetStats(c *gin.Context) {
	subscriberID := strings.TrimSpace(c.Param("id"))

	stats := s.store.StatsFor(subscriberID)
	c.JSON(http.StatusOK, gin.H{
		"data":    stats,
		"message": billing.RenderStats(stats, s.billingSvc.Tariff()),
	})
}
