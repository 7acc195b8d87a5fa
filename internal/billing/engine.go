// Package billing turns meter readings into invoices. It is pure
// computation: it reads history through the ledger store and never persists
// or delivers anything itself.
package billing

import (
	"fmt"
	"time"

	"github.com/smallbiznis/waterbill/internal/clock"
	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger"
	"github.com/smallbiznis/waterbill/internal/ledger/domain"
	"go.uber.org/fx"
)

// InvalidReadingError reports a submitted reading below the subscriber's
// previous one. Meter readings are monotonically non-decreasing, and this
// is the one place that rule is enforced.
type InvalidReadingError struct {
	Previous float64
	Current  float64
}

func (e *InvalidReadingError) Error() string {
	return fmt.Sprintf("reading %.1f is below previous reading %.1f", e.Current, e.Previous)
}

type Params struct {
	fx.In

	Store  *ledger.Store
	Tariff *config.TariffHolder
	Clock  clock.Clock
}

// Engine computes invoices against the current tariff.
type Engine struct {
	store  *ledger.Store
	tariff *config.TariffHolder
	clock  clock.Clock
}

func New(p Params) *Engine {
	return &Engine{
		store:  p.Store,
		tariff: p.Tariff,
		clock:  p.Clock,
	}
}

// ComputeInvoice validates the reading and produces the invoice for the
// calendar month of the current clock time. A subscriber with no prior
// invoice has a previous reading of 0, so any non-negative first reading is
// accepted. The invoice is not persisted.
func (e *Engine) ComputeInvoice(subscriberID string, currentReading float64) (domain.Invoice, error) {
	now := e.clock.Now()

	previous, ok := e.store.LastReading(subscriberID)
	if !ok {
		previous = 0
	}
	if currentReading < previous {
		return domain.Invoice{}, &InvalidReadingError{Previous: previous, Current: currentReading}
	}

	tariff := e.tariff.Get()
	consumption := currentReading - previous

	// Flat rate only; tiers are reserved in the data model but never
	// evaluated. No rounding here: display formatting rounds.
	amount := consumption*tariff.UnitPrice + tariff.MonthlyFee

	return domain.Invoice{
		SubscriberID:    subscriberID,
		Period:          PeriodKey(now),
		PreviousReading: previous,
		CurrentReading:  currentReading,
		Consumption:     consumption,
		TotalAmount:     amount,
		CreatedAt:       now,
		PeriodLabel:     PeriodLabel(now),
	}, nil
}

// Tariff exposes the live tariff for presentation.
func (e *Engine) Tariff() config.TariffConfig {
	return e.tariff.Get()
}

// ComparisonFor renders the trend of an invoice against the subscriber's
// prior period, when one exists.
func (e *Engine) ComparisonFor(inv domain.Invoice) Comparison {
	history := e.store.InvoicesFor(inv.SubscriberID, 2)
	for _, prior := range history {
		if prior.Period < inv.Period {
			return Trend(inv.Consumption, prior.Consumption)
		}
	}
	return Comparison{}
}

// PeriodKey is the zero-padded YYYY-MM key for the month of t.
func PeriodKey(t time.Time) string {
	return t.Format(domain.PeriodLayout)
}

// PeriodLabel is the human-readable label for the month of t.
func PeriodLabel(t time.Time) string {
	return t.Format("January 2006")
}

// Direction classifies a consumption trend.
type Direction int

const (
	Unchanged Direction = iota
	Increase
	Decrease
)

// Comparison is the consumption trend against the previous period.
// Available is false when there is no previous invoice or its consumption
// was zero.
type Comparison struct {
	Available bool
	ChangePct float64
	Direction Direction
}

// Trend compares current consumption against the previous period's.
func Trend(current, previous float64) Comparison {
	if previous == 0 {
		return Comparison{}
	}
	pct := (current - previous) / previous * 100
	cmp := Comparison{Available: true, ChangePct: pct}
	switch {
	case pct > 0:
		cmp.Direction = Increase
	case pct < 0:
		cmp.Direction = Decrease
	default:
		cmp.Direction = Unchanged
	}
	return cmp
}
