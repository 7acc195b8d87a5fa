package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterbill/internal/billing"
	"github.com/smallbiznis/waterbill/internal/clock"
	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger"
	ledgerdomain "github.com/smallbiznis/waterbill/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/waterbill/internal/observability/metrics"
	"github.com/smallbiznis/waterbill/internal/providers/delivery"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Store    *ledger.Store
	Tariff   *config.TariffHolder
	Log      *zap.Logger
	Clock    clock.Clock
	Provider delivery.Provider
	GenID    *snowflake.Node
	Config   Config `optional:"true"`
}

type Scheduler struct {
	store    *ledger.Store
	tariff   *config.TariffHolder
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	provider delivery.Provider
	genID    *snowflake.Node
	jobs     []*job
}

// job is a calendar-armed task. next is the earliest instant the task may
// fire; rearm computes the following occurrence after a run.
type job struct {
	name  string
	next  time.Time
	rearm func(after time.Time) time.Time
	run   func(ctx context.Context) error
}

// FanOutResult reports the outcome of one delivery sweep.
type FanOutResult struct {
	Sent    int
	Failed  int
	Skipped int
}

func New(p Params) (*Scheduler, error) {
	if p.Store == nil || p.Tariff == nil || p.Log == nil || p.Clock == nil || p.Provider == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		store:    p.Store,
		tariff:   p.Tariff,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		provider: p.Provider,
		genID:    p.GenID,
	}
	now := s.clock.Now()
	s.jobs = []*job{
		{
			name:  "monthly_reminder",
			rearm: s.nextMonthlyReminder,
			next:  s.nextMonthlyReminder(now),
			run:   s.MonthlyReminderJob,
		},
		{
			name:  "preclose_reminder",
			rearm: s.nextPrecloseReminder,
			next:  s.nextPrecloseReminder(now),
			run:   s.PrecloseReminderJob,
		},
		{
			name: "daily_backup",
			rearm: func(after time.Time) time.Time {
				return nextDaily(after, s.cfg.BackupHour, s.cfg.BackupMinute)
			},
			next: nextDaily(now, s.cfg.BackupHour, s.cfg.BackupMinute),
			run:  s.DailyBackupJob,
		},
		{
			name: "backup_cleanup",
			rearm: func(after time.Time) time.Time {
				return nextWeekly(after, s.cfg.CleanupWeekday, s.cfg.CleanupHour, s.cfg.CleanupMinute)
			},
			next: nextWeekly(now, s.cfg.CleanupWeekday, s.cfg.CleanupHour, s.cfg.CleanupMinute),
			run:  s.CleanupJob,
		},
	}
	return s, nil
}

func (s *Scheduler) nextMonthlyReminder(after time.Time) time.Time {
	t := s.tariff.Get()
	return nextMonthly(after, t.ReminderDay, t.ReminderHour, t.ReminderMinute)
}

func (s *Scheduler) nextPrecloseReminder(after time.Time) time.Time {
	t := s.tariff.Get()
	return nextMonthly(after, t.SecondReminderDay, t.ReminderHour, t.ReminderMinute)
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(
		zap.String("job", name),
		zap.String("run_id", s.genID.Generate().String()),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)
	log.Info("job started")

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		log.Info("job finished")
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce fires every job whose next occurrence has passed and re-arms it.
// Reminder occurrences are recomputed from the live tariff config, so a
// schedule change in the config file takes effect on the following arm.
func (s *Scheduler) RunOnce(parent context.Context) error {
	now := s.clock.Now()
	var err error

	for _, j := range s.jobs {
		if now.Before(j.next) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, s.cfg.JobTimeout, j.run))
		j.next = j.rearm(now)
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// MonthlyReminderJob asks every opted-in subscriber to submit the reading
// that closes the previous period.
func (s *Scheduler) MonthlyReminderJob(ctx context.Context) error {
	now := s.clock.Now()
	prev := now.AddDate(0, 0, -now.Day())
	label := billing.PeriodLabel(prev)

	subs := s.store.SubscribersWithReminders()
	res := s.fanOut(ctx, "monthly_reminder", subs, 0, func(ref ledgerdomain.SubscriberRef) string {
		return monthlyReminderText(ref.Subscriber.FirstName, label)
	})
	s.log.Info("monthly reminders delivered",
		zap.String("period", label),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
	)
	return nil
}

// PrecloseReminderJob warns subscribers the current period is about to close.
func (s *Scheduler) PrecloseReminderJob(ctx context.Context) error {
	now := s.clock.Now()
	label := billing.PeriodLabel(now)

	subs := s.store.SubscribersWithReminders()
	res := s.fanOut(ctx, "preclose_reminder", subs, 0, func(ref ledgerdomain.SubscriberRef) string {
		return precloseReminderText(ref.Subscriber.FirstName, label)
	})
	s.log.Info("preclose reminders delivered",
		zap.String("period", label),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
	)
	return nil
}

func (s *Scheduler) DailyBackupJob(ctx context.Context) error {
	return s.store.AutoBackup()
}

func (s *Scheduler) CleanupJob(ctx context.Context) error {
	return s.store.CleanupBackups()
}

// StartupNotice tells opted-in subscribers the service is back after a
// restart. Delivery failures are counted, never fatal.
func (s *Scheduler) StartupNotice(ctx context.Context) {
	subs := s.store.SubscribersWithReminders()
	res := s.fanOut(ctx, "startup_notice", subs, 0, func(ledgerdomain.SubscriberRef) string {
		return startupNoticeText()
	})
	s.log.Info("startup notice delivered",
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
	)
}

// ForceReminders sends the monthly reminder to every subscriber immediately,
// including those who opted out. Pacing between sends respects the delivery
// channel's throughput limits.
func (s *Scheduler) ForceReminders(ctx context.Context) (FanOutResult, error) {
	now := s.clock.Now()
	prev := now.AddDate(0, 0, -now.Day())
	label := billing.PeriodLabel(prev)

	subs := s.store.Subscribers()
	res := s.fanOut(ctx, "force_reminders", subs, s.cfg.ForcePaceDelay, func(ref ledgerdomain.SubscriberRef) string {
		return forcedReminderText(ref.Subscriber.FirstName, label)
	})
	s.log.Info("forced reminders delivered",
		zap.String("period", label),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, ctx.Err()
}

// fanOut delivers one rendered message per subscriber. Each send gets its own
// timeout and a failure never aborts the sweep; ids that do not map to a
// delivery target are skipped.
func (s *Scheduler) fanOut(ctx context.Context, name string, subs []ledgerdomain.SubscriberRef, pace time.Duration, render func(ledgerdomain.SubscriberRef) string) FanOutResult {
	var res FanOutResult
	schedMetrics := obsmetrics.Scheduler()

	for i, ref := range subs {
		if ctx.Err() != nil {
			break
		}
		if _, err := delivery.TargetID(ref.ID); err != nil {
			res.Skipped++
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.provider.Send(sendCtx, ref.ID, render(ref))
		cancel()
		if err != nil {
			res.Failed++
			s.log.Warn("reminder delivery failed",
				zap.String("subscriber_id", ref.ID),
				zap.Error(err),
			)
			continue
		}
		res.Sent++

		if pace > 0 && i < len(subs)-1 {
			time.Sleep(pace)
		}
	}

	schedMetrics.AddRemindersSent(name, res.Sent)
	schedMetrics.AddRemindersFailed(name, res.Failed)
	return res
}
