package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"InstabilitySentinel/internal/collector"
	"InstabilitySentinel/internal/logger"
	"InstabilitySentinel/internal/notifier"
	"InstabilitySentinel/internal/recorder"
	"InstabilitySentinel/internal/trend"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   *collector.Collector
	Engine      *trend.Engine
	Notifier    notifier.Notifier
	Recorder    recorder.Recorder
	ReportLimit int
	Ctx         context.Context

	// snapshotMu keeps a watcher-triggered snapshot from overlapping a cron one.
	snapshotMu sync.Mutex
}

// SnapshotResult summarizes one ingest run.
type SnapshotResult struct {
	RunID     string
	Collected int
	Recorded  int
	Rejected  int
	Persisted int
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, engine *trend.Engine, n notifier.Notifier, rec recorder.Recorder, reportLimit int) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Collector:   col,
		Engine:      engine,
		Notifier:    n,
		Recorder:    rec,
		ReportLimit: reportLimit,
		Ctx:         ctx,
	}
}

// RegisterAll registers the snapshot, report and prune tasks.
func (s *Scheduler) RegisterAll(snapshotCron, reportCron, pruneCron string) error {
	if _, err := s.Cron.AddFunc(snapshotCron, func() { s.Snapshot() }); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	if _, err := s.Cron.AddFunc(pruneCron, s.pruneTask); err != nil {
		return fmt.Errorf("register prune task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Log.Info("scheduler stopped")
}

// Restore replays persisted observations still inside the retention window.
func (s *Scheduler) Restore() (int, error) {
	since := s.Engine.Now().Add(-trend.Retention)
	observations, err := s.Recorder.LoadObservations(since)
	if err != nil {
		return 0, fmt.Errorf("load observations: %w", err)
	}
	n := s.Engine.Restore(observations)
	logger.Log.WithFields(logrus.Fields{
		"loaded":    len(observations),
		"restored":  n,
		"countries": s.Engine.CountTrackedCountries(),
	}).Info("history restored")
	return n, nil
}

// Snapshot collects one batch of scores, records it in the engine and then
// persists it. Persistence failures are logged and never undo the in-memory record.
func (s *Scheduler) Snapshot() SnapshotResult {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	res := SnapshotResult{RunID: uuid.NewString()}
	log := logger.Task("snapshot").WithField("run_id", res.RunID)

	observations, err := s.Collector.Collect()
	if err != nil {
		log.WithError(err).Error("collect scores")
		return res
	}
	res.Collected = len(observations)

	for i := range observations {
		obs := &observations[i]
		if err := s.Engine.Record(obs); err != nil {
			res.Rejected++
			log.WithError(err).WithField("code", obs.CountryCode).Warn("observation rejected")
			continue
		}
		res.Recorded++
		if err := s.Recorder.RecordObservation(obs); err != nil {
			log.WithError(err).WithField("code", obs.CountryCode).Error("persist observation")
			continue
		}
		res.Persisted++
	}

	log.WithFields(logrus.Fields{
		"collected": res.Collected,
		"recorded":  res.Recorded,
		"rejected":  res.Rejected,
		"persisted": res.Persisted,
	}).Info("snapshot complete")
	return res
}

// BuildDigest assembles the current rankings.
func (s *Scheduler) BuildDigest() *notifier.Digest {
	return &notifier.Digest{
		GeneratedAt: time.Now(),
		Tracked:     s.Engine.CountTrackedCountries(),
		Rising:      s.Engine.MostRising(s.ReportLimit),
		Falling:     s.Engine.MostFalling(s.ReportLimit),
		Volatile:    s.Engine.MostVolatile(s.ReportLimit),
	}
}

func (s *Scheduler) reportTask() {
	logger.Task("report").Info("running report task")
	s.trySend(notifier.FormatDigest(s.BuildDigest()))
}

func (s *Scheduler) pruneTask() {
	log := logger.Task("prune")
	n, err := s.Recorder.Prune(time.Now().Add(-trend.Retention))
	if err != nil {
		log.WithError(err).Error("prune store")
		return
	}
	log.WithField("removed", n).Info("store pruned")
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return usage
	}
	switch fields[0] {
	case "/rising":
		return notifier.FormatDigest(&notifier.Digest{
			GeneratedAt: time.Now(),
			Tracked:     s.Engine.CountTrackedCountries(),
			Rising:      s.Engine.MostRising(s.ReportLimit),
		})
	case "/falling":
		return notifier.FormatDigest(&notifier.Digest{
			GeneratedAt: time.Now(),
			Tracked:     s.Engine.CountTrackedCountries(),
			Falling:     s.Engine.MostFalling(s.ReportLimit),
		})
	case "/volatile":
		return notifier.FormatDigest(&notifier.Digest{
			GeneratedAt: time.Now(),
			Tracked:     s.Engine.CountTrackedCountries(),
			Volatile:    s.Engine.MostVolatile(s.ReportLimit),
		})
	case "/report":
		return notifier.FormatDigest(s.BuildDigest())
	case "/trend":
		if len(fields) < 2 {
			return "usage: /trend CODE"
		}
		t, ok := s.Engine.Trend(fields[1])
		if !ok {
			return fmt.Sprintf("not enough history for %s (need %d samples)", html.EscapeString(trend.NormalizeCode(fields[1])), trend.MinSamples)
		}
		return notifier.FormatTrend(t)
	case "/component":
		if len(fields) < 3 {
			if len(fields) == 2 {
				return html.EscapeString(fmt.Sprintf("components for %s: %s", trend.NormalizeCode(fields[1]),
					strings.Join(s.Engine.Components(fields[1]), ", ")))
			}
			return "usage: /component CODE NAME"
		}
		c, ok := s.Engine.ComponentTrend(fields[1], fields[2])
		if !ok {
			return html.EscapeString(fmt.Sprintf("not enough history for %s/%s", trend.NormalizeCode(fields[1]), fields[2]))
		}
		return notifier.FormatComponentTrend(c)
	case "/status":
		return fmt.Sprintf("tracking %d countries", s.Engine.CountTrackedCountries())
	default:
		return usage
	}
}

const usage = "commands:\n• /report\n• /rising\n• /falling\n• /volatile\n• /trend CODE\n• /component CODE [NAME]\n• /status"

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Send(s.Ctx, text); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("send notification")
	}
}
