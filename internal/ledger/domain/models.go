// Package domain contains the persisted document model for the ledger.
package domain

import (
	"time"
)

// DocumentVersion is the schema version written to new documents.
const DocumentVersion = "2.0"

// Document is the single root object persisted to storage. The ledger
// store is its only writer; every other component sees copies.
//
// Readers must tolerate unknown fields so older binaries can open newer
// documents.
type Document struct {
	Version   string                 `json:"version"`
	CreatedAt time.Time              `json:"created_at"`
	Users     map[string]*Subscriber `json:"users"`
	Invoices  map[string]*Invoice    `json:"invoices"`
	Settings  Settings               `json:"settings"`
}

// NewDocument returns a fresh, empty document with the given settings.
func NewDocument(now time.Time, settings Settings) *Document {
	return &Document{
		Version:   DocumentVersion,
		CreatedAt: now,
		Users:     make(map[string]*Subscriber),
		Invoices:  make(map[string]*Invoice),
		Settings:  settings,
	}
}

// Subscriber is one metered account, keyed in the document by its stable
// external id. Subscribers are created lazily on first access and never
// deleted.
type Subscriber struct {
	FirstName        string    `json:"first_name"`
	Username         string    `json:"username"`
	ReminderEnabled  bool      `json:"reminder_enabled"`
	NotificationTime string    `json:"notification_time"`
	CreatedAt        time.Time `json:"created_at"`
	LastActive       time.Time `json:"last_active"`

	// Cached from the most recently saved invoice for fast lookup.
	LastReading       *float64 `json:"last_reading,omitempty"`
	LastInvoicePeriod string   `json:"last_invoice_date,omitempty"`
}

// DefaultSubscriber is the record shape for first contact. Reminders are
// opt-out.
func DefaultSubscriber(now time.Time) *Subscriber {
	return &Subscriber{
		ReminderEnabled:  true,
		NotificationTime: "10:00",
		CreatedAt:        now,
		LastActive:       now,
	}
}

// SubscriberUpdate is a partial update; nil fields are left untouched.
type SubscriberUpdate struct {
	FirstName        *string
	Username         *string
	ReminderEnabled  *bool
	NotificationTime *string
}

// Apply merges the update into the subscriber.
func (u SubscriberUpdate) Apply(s *Subscriber) {
	if u.FirstName != nil {
		s.FirstName = *u.FirstName
	}
	if u.Username != nil {
		s.Username = *u.Username
	}
	if u.ReminderEnabled != nil {
		s.ReminderEnabled = *u.ReminderEnabled
	}
	if u.NotificationTime != nil {
		s.NotificationTime = *u.NotificationTime
	}
}

// SubscriberRef pairs a subscriber id with a copy of its record.
type SubscriberRef struct {
	ID         string
	Subscriber Subscriber
}

// Invoice is one computed bill for one subscriber and one calendar month.
// Saving an invoice for an existing (subscriber, period) pair overwrites it;
// there is no edit or delete path.
type Invoice struct {
	SubscriberID    string    `json:"user_id"`
	Period          string    `json:"year_month"`
	PreviousReading float64   `json:"previous_reading"`
	CurrentReading  float64   `json:"current_reading"`
	Consumption     float64   `json:"consumption"`
	TotalAmount     float64   `json:"total_amount"`
	CreatedAt       time.Time `json:"timestamp"`
	PeriodLabel     string    `json:"month_name"`
}

// InvoiceKey is the composite document key for an invoice.
func InvoiceKey(subscriberID, period string) string {
	return subscriberID + "_" + period
}

// PeriodLayout is the zero-padded YYYY-MM billing-period key. Lexicographic
// order on these keys equals chronological order.
const PeriodLayout = "2006-01"

// ValidatePeriod reports whether s is a well-formed billing period.
func ValidatePeriod(s string) error {
	if _, err := time.Parse(PeriodLayout, s); err != nil {
		return ErrInvalidPeriod
	}
	return nil
}

// Settings is the persisted snapshot of pricing and reminder configuration
// written when the document is created. Live values come from the tariff
// config; this block exists so the document is self-describing.
type Settings struct {
	UnitPrice    float64 `json:"unit_price"`
	MonthlyFee   float64 `json:"monthly_fee"`
	Currency     string  `json:"currency"`
	ReminderDay  int     `json:"reminder_day"`
	ReminderHour int     `json:"reminder_hour"`
}

// Stats aggregates a subscriber's recent invoices.
type Stats struct {
	TotalInvoices    int     `json:"total_invoices"`
	TotalConsumption float64 `json:"total_consumption"`
	TotalAmount      float64 `json:"total_amount"`
	AvgConsumption   float64 `json:"avg_consumption"`
	FirstPeriod      string  `json:"first_invoice,omitempty"`
	LastPeriod       string  `json:"last_invoice,omitempty"`

	// Highest and lowest consumption months within the window.
	MaxConsumption *Invoice `json:"max_consumption,omitempty"`
	MinConsumption *Invoice `json:"min_consumption,omitempty"`
}

// Export is the envelope returned when a subscriber exports their data.
type Export struct {
	SubscriberID  string    `json:"user_id"`
	ExportedAt    time.Time `json:"export_date"`
	TotalInvoices int       `json:"total_invoices"`
	Invoices      []Invoice `json:"invoices"`
}
