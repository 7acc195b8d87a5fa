// Package ledger owns the on-disk document: serialized load/save, corruption
// quarantine, and rotating backups. No other package touches the file.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/smallbiznis/waterbill/internal/clock"
	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/waterbill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// statsWindow bounds StatsFor to the most recent invoices. Stats are a
// recent-window report, not a full-history one.
const statsWindow = 100

// Store is the single writer of the ledger document. Every operation takes
// the store mutex and persists before returning, so HTTP handlers and
// scheduler goroutines can call it concurrently.
type Store struct {
	mu        sync.Mutex
	log       *zap.Logger
	clock     clock.Clock
	dataFile  string
	backupDir string
	doc       *domain.Document
}

type Params struct {
	fx.In

	Cfg    config.Config
	Tariff *config.TariffHolder
	Log    *zap.Logger
	Clock  clock.Clock
}

var ErrInvalidConfig = errors.New("ledger: invalid store configuration")

// Open loads the document, creating a fresh one on first run and
// quarantining an unreadable one. Failure to create the persistence
// directories is the only error treated as fatal by callers.
func Open(p Params) (*Store, error) {
	if p.Log == nil || p.Clock == nil || p.Tariff == nil {
		return nil, ErrInvalidConfig
	}
	s := &Store{
		log:       p.Log.Named("ledger"),
		clock:     p.Clock,
		dataFile:  p.Cfg.DataFile,
		backupDir: p.Cfg.BackupDir,
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create backup dir: %w", err)
	}
	if dir := filepath.Dir(s.dataFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create data dir: %w", err)
		}
	}

	doc, err := s.load(p.Tariff.Get())
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// load reads the primary file. A missing file yields a fresh document; a
// file that fails to parse is copied verbatim into quarantine and replaced
// by a fresh document. The original bytes are never lost.
func (s *Store) load(tariff config.TariffConfig) (*domain.Document, error) {
	settings := settingsFromTariff(tariff)

	raw, err := os.ReadFile(s.dataFile)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("creating new ledger document", zap.String("file", s.dataFile))
		return domain.NewDocument(s.clock.Now(), settings), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read document: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		quarantined, qerr := s.quarantine(raw)
		if qerr != nil {
			s.log.Error("quarantine of corrupt document failed", zap.Error(qerr))
		} else {
			s.log.Warn("ledger document unreadable, quarantined",
				zap.String("file", s.dataFile),
				zap.String("quarantine", quarantined),
				zap.Error(err),
			)
		}
		obsmetrics.Store().IncQuarantine()
		return domain.NewDocument(s.clock.Now(), settings), nil
	}

	if doc.Users == nil {
		doc.Users = make(map[string]*domain.Subscriber)
	}
	if doc.Invoices == nil {
		doc.Invoices = make(map[string]*domain.Invoice)
	}
	s.log.Info("ledger document loaded",
		zap.String("file", s.dataFile),
		zap.Int("users", len(doc.Users)),
		zap.Int("invoices", len(doc.Invoices)),
	)
	return &doc, nil
}

// Save persists the in-memory document.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked takes the daily auto-backup cadence and rewrites the primary
// file in full. The write is not an atomic rename; a crash mid-write can
// truncate the primary, which the daily pre-write backup mitigates.
func (s *Store) persistLocked() error {
	s.autoBackupLocked()

	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", domain.ErrStoreIO, err)
	}
	if err := os.WriteFile(s.dataFile, raw, 0o644); err != nil {
		obsmetrics.Store().IncSaveFailure()
		s.log.Error("ledger save failed", zap.Error(err))
		return fmt.Errorf("%w: write document: %v", domain.ErrStoreIO, err)
	}
	return nil
}

// GetSubscriber returns the subscriber record, creating the default one on
// first access. Creation persists immediately.
func (s *Store) GetSubscriber(id string) (domain.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, created := s.subscriberLocked(id)
	if created {
		if err := s.persistLocked(); err != nil {
			delete(s.doc.Users, id)
			return domain.Subscriber{}, err
		}
	}
	return *sub, nil
}

// subscriberLocked is the get-or-create path; it does not persist.
func (s *Store) subscriberLocked(id string) (sub *domain.Subscriber, created bool) {
	if sub, ok := s.doc.Users[id]; ok {
		return sub, false
	}
	sub = domain.DefaultSubscriber(s.clock.Now())
	s.doc.Users[id] = sub
	return sub, true
}

// UpdateSubscriber merges the partial update, refreshes last-active, and
// persists the document.
func (s *Store) UpdateSubscriber(id string, update domain.SubscriberUpdate) (domain.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, _ := s.subscriberLocked(id)
	prev := *sub
	update.Apply(sub)
	sub.LastActive = s.clock.Now()
	if err := s.persistLocked(); err != nil {
		*sub = prev
		return domain.Subscriber{}, err
	}
	return *sub, nil
}

// SaveInvoice upserts the invoice under its composite key, refreshes the
// owning subscriber's cached last reading and period, and persists. The
// returned key identifies the saved invoice.
func (s *Store) SaveInvoice(inv domain.Invoice) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.InvoiceKey(inv.SubscriberID, inv.Period)
	prevInv, hadInv := s.doc.Invoices[key]

	sub, _ := s.subscriberLocked(inv.SubscriberID)
	prevSub := *sub

	stored := inv
	s.doc.Invoices[key] = &stored
	reading := inv.CurrentReading
	sub.LastReading = &reading
	sub.LastInvoicePeriod = inv.Period
	sub.LastActive = s.clock.Now()

	if err := s.persistLocked(); err != nil {
		if hadInv {
			s.doc.Invoices[key] = prevInv
		} else {
			delete(s.doc.Invoices, key)
		}
		*sub = prevSub
		return "", err
	}
	return key, nil
}

// InvoicesFor returns the subscriber's invoices ordered by period
// descending, truncated to limit. A non-positive limit returns all.
func (s *Store) InvoicesFor(subscriberID string, limit int) []domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoicesForLocked(subscriberID, limit)
}

func (s *Store) invoicesForLocked(subscriberID string, limit int) []domain.Invoice {
	invoices := make([]domain.Invoice, 0)
	for _, inv := range s.doc.Invoices {
		if inv.SubscriberID == subscriberID {
			invoices = append(invoices, *inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].Period > invoices[j].Period
	})
	if limit > 0 && len(invoices) > limit {
		invoices = invoices[:limit]
	}
	return invoices
}

// InvoiceForPeriod looks up one invoice by its composite key.
func (s *Store) InvoiceForPeriod(subscriberID, period string) (domain.Invoice, error) {
	if err := domain.ValidatePeriod(period); err != nil {
		return domain.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.doc.Invoices[domain.InvoiceKey(subscriberID, period)]
	if !ok {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return *inv, nil
}

// LastReading returns the most recent invoice's current reading.
func (s *Store) LastReading(subscriberID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.invoicesForLocked(subscriberID, 1)
	if len(latest) == 0 {
		return 0, false
	}
	return latest[0].CurrentReading, true
}

// StatsFor aggregates the subscriber's most recent invoices (bounded to
// statsWindow, newest first).
func (s *Store) StatsFor(subscriberID string) domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoices := s.invoicesForLocked(subscriberID, statsWindow)
	stats := domain.Stats{TotalInvoices: len(invoices)}
	if len(invoices) == 0 {
		return stats
	}

	maxIdx, minIdx := 0, 0
	for i, inv := range invoices {
		stats.TotalConsumption += inv.Consumption
		stats.TotalAmount += inv.TotalAmount
		if inv.Consumption > invoices[maxIdx].Consumption {
			maxIdx = i
		}
		if inv.Consumption < invoices[minIdx].Consumption {
			minIdx = i
		}
	}
	stats.AvgConsumption = stats.TotalConsumption / float64(len(invoices))
	stats.FirstPeriod = invoices[len(invoices)-1].Period
	stats.LastPeriod = invoices[0].Period
	maxInv, minInv := invoices[maxIdx], invoices[minIdx]
	stats.MaxConsumption = &maxInv
	stats.MinConsumption = &minInv
	return stats
}

// SubscribersWithReminders returns subscribers with the reminder flag on,
// ordered by id.
func (s *Store) SubscribersWithReminders() []domain.SubscriberRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribersLocked(true)
}

// Subscribers returns every subscriber, ordered by id. The forced reminder
// override fans out to opt-outs too.
func (s *Store) Subscribers() []domain.SubscriberRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribersLocked(false)
}

func (s *Store) subscribersLocked(remindersOnly bool) []domain.SubscriberRef {
	refs := make([]domain.SubscriberRef, 0, len(s.doc.Users))
	for id, sub := range s.doc.Users {
		if remindersOnly && !sub.ReminderEnabled {
			continue
		}
		refs = append(refs, domain.SubscriberRef{ID: id, Subscriber: *sub})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// ExportSubscriber bundles a subscriber's full recent history for download.
func (s *Store) ExportSubscriber(subscriberID string) domain.Export {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoices := s.invoicesForLocked(subscriberID, 0)
	return domain.Export{
		SubscriberID:  subscriberID,
		ExportedAt:    s.clock.Now(),
		TotalInvoices: len(invoices),
		Invoices:      invoices,
	}
}

func settingsFromTariff(t config.TariffConfig) domain.Settings {
	return domain.Settings{
		UnitPrice:    t.UnitPrice,
		MonthlyFee:   t.MonthlyFee,
		Currency:     t.Currency,
		ReminderDay:  t.ReminderDay,
		ReminderHour: t.ReminderHour,
	}
}
