package billing

import (
	"testing"
	"time"

	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
)

func TestRenderInvoice(t *testing.T) {
	tariff := config.DefaultTariffConfig()
	inv := domain.Invoice{
		SubscriberID:    "1001",
		Period:          "2026-08",
		PeriodLabel:     "August 2026",
		PreviousReading: 100,
		CurrentReading:  145,
		Consumption:     45,
		TotalAmount:     31750,
		CreatedAt:       time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC),
	}

	text := RenderInvoice(inv, tariff, Comparison{})
	assert.Contains(t, text, "August 2026")
	assert.Contains(t, text, "Previous reading: 100.0")
	assert.Contains(t, text, "Current reading:  145.0")
	assert.Contains(t, text, "Usage: 45.0 x 700 = 31500")
	assert.Contains(t, text, "Monthly fee: 250")
	assert.Contains(t, text, "Total due: 31750")
	assert.NotContains(t, text, "from last period")

	withTrend := RenderInvoice(inv, tariff, Comparison{Available: true, ChangePct: 12.5, Direction: Increase})
	assert.Contains(t, withTrend, "Up 12.5% from last period")
}

func TestRenderTrend(t *testing.T) {
	assert.Equal(t, "No comparison available", RenderTrend(Comparison{}))
	assert.Equal(t, "Up 25.0% from last period", RenderTrend(Comparison{Available: true, ChangePct: 25, Direction: Increase}))
	assert.Equal(t, "Down 25.0% from last period", RenderTrend(Comparison{Available: true, ChangePct: -25, Direction: Decrease}))
	assert.Equal(t, "Unchanged from last period", RenderTrend(Comparison{Available: true}))
}

func TestRenderHistoryEmpty(t *testing.T) {
	text := RenderHistory(nil, domain.Stats{}, config.DefaultTariffConfig())
	assert.Contains(t, text, "No invoices yet")
}

func TestRenderStatsProjection(t *testing.T) {
	stats := domain.Stats{
		TotalInvoices:    2,
		TotalConsumption: 80,
		TotalAmount:      56500,
		AvgConsumption:   40,
		FirstPeriod:      "2026-07",
		LastPeriod:       "2026-08",
	}

	text := RenderStats(stats, config.DefaultTariffConfig())
	// 40 * 700 + 250
	assert.Contains(t, text, "Projected monthly cost: 28250")
	assert.Contains(t, text, "First invoice: 2026-07")
}
