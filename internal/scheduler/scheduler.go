// Package scheduler runs recurring prediction jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/datasource"
	"github.com/yourusername/apex-predict/internal/metrics"
	"github.com/yourusername/apex-predict/internal/service"
)

// Scheduler manages recurring prediction and artifact maintenance jobs. It
// tracks a set of upcoming races and produces a fresh bundle for each on the
// configured cadence.
type Scheduler struct {
	cron            *cron.Cron
	provider        datasource.RaceInputProvider
	orchestrator    *service.InferenceOrchestrator
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	trackedRaces    map[uuid.UUID]bool
	gracefulTimeout time.Duration
}

// BundleSink receives completed bundles from scheduled runs.
type BundleSink func(raceID uuid.UUID, err error)

// NewScheduler creates a new scheduler
func NewScheduler(provider datasource.RaceInputProvider, orchestrator *service.InferenceOrchestrator, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		provider:        provider,
		orchestrator:    orchestrator,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		trackedRaces:    make(map[uuid.UUID]bool),
		gracefulTimeout: 30 * time.Second,
	}
}

// TrackRace adds a race to the scheduled prediction set.
func (s *Scheduler) TrackRace(raceID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackedRaces[raceID] = true
	metrics.TrackedRaces.Set(float64(len(s.trackedRaces)))
}

// UntrackRace removes a race from the scheduled prediction set.
func (s *Scheduler) UntrackRace(raceID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackedRaces, raceID)
	metrics.TrackedRaces.Set(float64(len(s.trackedRaces)))
}

// SchedulePredictionRuns schedules fresh bundles for all tracked races.
func (s *Scheduler) SchedulePredictionRuns(cronExpression string, sink BundleSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		s.mu.RLock()
		races := make([]uuid.UUID, 0, len(s.trackedRaces))
		for id := range s.trackedRaces {
			races = append(races, id)
		}
		s.mu.RUnlock()

		for _, raceID := range races {
			err := s.runPrediction(ctx, raceID)
			if err != nil {
				metrics.RecordScheduledRun("prediction", "failure")
				s.logger.WithFields(logrus.Fields{
					"race_id": raceID,
					"error":   err.Error(),
				}).Error("Scheduled prediction run failed")
			} else {
				metrics.RecordScheduledRun("prediction", "success")
			}
			if sink != nil {
				sink(raceID, err)
			}
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled prediction runs")

	return nil
}

// ScheduleArtifactReload schedules a recurring model artifact reload.
func (s *Scheduler) ScheduleArtifactReload(cronExpression string, reload func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		if err := reload(); err != nil {
			metrics.RecordScheduledRun("artifact_reload", "failure")
			s.logger.WithError(err).Error("Scheduled artifact reload failed")
			return
		}
		metrics.RecordScheduledRun("artifact_reload", "success")
		s.logger.Info("Scheduled artifact reload completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled artifact reloads")

	return nil
}

func (s *Scheduler) runPrediction(ctx context.Context, raceID uuid.UUID) error {
	input, err := s.provider.RaceInput(ctx, raceID)
	if err != nil {
		return fmt.Errorf("failed to load race input: %w", err)
	}

	bundle, err := s.orchestrator.Predict(ctx, input)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"race_id":   raceID,
		"riders":    len(bundle.Riders),
		"failed":    len(bundle.FailedRiders()),
		"overtakes": len(bundle.Overtakes),
	}).Info("Scheduled prediction run completed")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}

	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
