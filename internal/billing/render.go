package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger/domain"
)

// Display rounding lives here; computed amounts are stored unrounded.

const renderedRule = "----------------------"

// RenderInvoice formats an invoice as plain text, with a trend line when a
// comparison is available.
func RenderInvoice(inv domain.Invoice, tariff config.TariffConfig, cmp Comparison) string {
	consumptionCost := inv.Consumption * tariff.UnitPrice

	var b strings.Builder
	fmt.Fprintf(&b, "Water bill - %s\n%s\n", inv.PeriodLabel, renderedRule)
	fmt.Fprintf(&b, "Previous reading: %.1f\n", inv.PreviousReading)
	fmt.Fprintf(&b, "Current reading:  %.1f\n", inv.CurrentReading)
	fmt.Fprintf(&b, "Consumption:      %.1f units\n", inv.Consumption)
	fmt.Fprintf(&b, "%s\n", renderedRule)
	fmt.Fprintf(&b, "Usage: %.1f x %.0f = %.0f %s\n", inv.Consumption, tariff.UnitPrice, consumptionCost, tariff.Currency)
	fmt.Fprintf(&b, "Monthly fee: %.0f %s\n", tariff.MonthlyFee, tariff.Currency)
	fmt.Fprintf(&b, "Total due: %.0f %s\n", inv.TotalAmount, tariff.Currency)
	fmt.Fprintf(&b, "Recorded: %s", inv.CreatedAt.Format(time.DateTime))

	if cmp.Available {
		b.WriteString("\n" + RenderTrend(cmp))
	}
	return b.String()
}

// RenderTrend formats a comparison against the previous period.
func RenderTrend(cmp Comparison) string {
	if !cmp.Available {
		return "No comparison available"
	}
	switch cmp.Direction {
	case Increase:
		return fmt.Sprintf("Up %.1f%% from last period", cmp.ChangePct)
	case Decrease:
		return fmt.Sprintf("Down %.1f%% from last period", -cmp.ChangePct)
	default:
		return "Unchanged from last period"
	}
}

// RenderHistory formats recent invoices with a stats header.
func RenderHistory(invoices []domain.Invoice, stats domain.Stats, tariff config.TariffConfig) string {
	if len(invoices) == 0 {
		return "No invoices yet. Submit a meter reading to get started."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Invoice history\n%s\n", renderedRule)
	fmt.Fprintf(&b, "Invoices: %d\n", stats.TotalInvoices)
	fmt.Fprintf(&b, "Total consumption: %.1f units\n", stats.TotalConsumption)
	fmt.Fprintf(&b, "Total paid: %.0f %s\n", stats.TotalAmount, tariff.Currency)
	fmt.Fprintf(&b, "Monthly average: %.1f units\n", stats.AvgConsumption)
	b.WriteString(renderedRule)
	for i, inv := range invoices {
		fmt.Fprintf(&b, "\n%d. %s - %.1f units - %.0f %s", i+1, inv.PeriodLabel, inv.Consumption, inv.TotalAmount, tariff.Currency)
	}
	return b.String()
}

// RenderStats formats the stats report, including the projected monthly cost
// at the current tariff.
func RenderStats(stats domain.Stats, tariff config.TariffConfig) string {
	if stats.TotalInvoices == 0 {
		return "Not enough data. Submit a few readings first."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Usage report\n%s\n", renderedRule)
	fmt.Fprintf(&b, "Invoices: %d\n", stats.TotalInvoices)
	fmt.Fprintf(&b, "Total consumption: %.1f units\n", stats.TotalConsumption)
	fmt.Fprintf(&b, "Total paid: %.0f %s\n", stats.TotalAmount, tariff.Currency)
	fmt.Fprintf(&b, "Monthly average: %.1f units\n", stats.AvgConsumption)
	if stats.MaxConsumption != nil {
		fmt.Fprintf(&b, "Highest month: %.1f units (%s)\n", stats.MaxConsumption.Consumption, stats.MaxConsumption.PeriodLabel)
	}
	if stats.MinConsumption != nil {
		fmt.Fprintf(&b, "Lowest month: %.1f units (%s)\n", stats.MinConsumption.Consumption, stats.MinConsumption.PeriodLabel)
	}
	fmt.Fprintf(&b, "First invoice: %s\n", stats.FirstPeriod)
	fmt.Fprintf(&b, "Last invoice: %s\n", stats.LastPeriod)

	projected := stats.AvgConsumption*tariff.UnitPrice + tariff.MonthlyFee
	fmt.Fprintf(&b, "Projected monthly cost: %.0f %s", projected, tariff.Currency)
	return b.String()
}
