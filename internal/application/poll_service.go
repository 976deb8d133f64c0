package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
	"github.com/google/uuid"
)

type CycleState int32

const (
	CycleIdle CycleState = iota
	CycleFetching
	CycleBuilding
	CycleDelivering
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleFetching:
		return "fetching"
	case CycleBuilding:
		return "building"
	case CycleDelivering:
		return "delivering"
	default:
		return "unknown"
	}
}

const (
	OutcomeDelivered     = "delivered"
	OutcomeEmpty         = "empty"
	OutcomeSourceError   = "source_error"
	OutcomeDeliveryError = "delivery_error"
)

type PollConfig struct {
	Org       string
	Location  *time.Location
	Username  string
	IconEmoji string
}

type CycleReport struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Repositories int
	Activities   int
	Skipped      int
	Delivered    bool
	Outcome      string
	Err          error
}

type PollService struct {
	cfg       PollConfig
	source    ports.SourceReader
	deliverer ports.Deliverer
	render    func(domain.Digest) string
	clock     ports.Clock
	recorder  ports.Recorder
	logger    *slog.Logger
	state     atomic.Int32
}

func NewPollService(
	cfg PollConfig,
	source ports.SourceReader,
	deliverer ports.Deliverer,
	render func(domain.Digest) string,
	clock ports.Clock,
	recorder ports.Recorder,
	logger *slog.Logger,
) *PollService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &PollService{
		cfg:       cfg,
		source:    source,
		deliverer: deliverer,
		render:    render,
		clock:     clock,
		recorder:  recorder,
		logger:    logger,
	}
}

func (s *PollService) State() CycleState {
	return CycleState(s.state.Load())
}

// RunCycle performs one fetch, build and deliver pass over the whole
// organization. Failures are logged and reported, never returned, so the
// caller's trigger keeps firing.
func (s *PollService) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{ID: uuid.NewString(), StartedAt: s.clock.Now()}
	logger := s.logger.With("cycle_id", report.ID, "org", s.cfg.Org)
	defer s.setState(CycleIdle)

	logger.Info("poll cycle started")

	report.Err = s.runCycle(ctx, logger, &report)
	report.FinishedAt = s.clock.Now()
	report.Outcome = outcomeOf(report)
	duration := report.FinishedAt.Sub(report.StartedAt)

	s.recorder.CycleCompleted(report.Outcome, report.Activities, duration)

	if report.Err != nil {
		attrs := []any{"error", report.Err, "outcome", report.Outcome, "repositories", report.Repositories}
		var deliveryErr *domain.DeliveryError
		if errors.As(report.Err, &deliveryErr) {
			attrs = append(attrs, "status_code", deliveryErr.StatusCode, "body", deliveryErr.Body)
		}
		logger.Error("poll cycle failed", attrs...)
		return report
	}

	logger.Info("poll cycle finished",
		"outcome", report.Outcome,
		"repositories", report.Repositories,
		"activities", report.Activities,
		"skipped", report.Skipped,
		"duration", duration)

	return report
}

func (s *PollService) runCycle(ctx context.Context, logger *slog.Logger, report *CycleReport) error {
	s.setState(CycleFetching)
	activities, err := s.collect(ctx, logger, report)
	if err != nil {
		return err
	}
	report.Activities = len(activities)

	s.setState(CycleBuilding)
	digest, ok := domain.BuildDigest(activities, s.cfg.Location)
	if !ok {
		logger.Info("no open issues or pull requests, skipping delivery")
		return nil
	}

	s.setState(CycleDelivering)
	msg := ports.Message{
		Text:      s.render(digest),
		Username:  s.cfg.Username,
		IconEmoji: s.cfg.IconEmoji,
	}
	if err := s.deliverer.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver digest: %w", err)
	}
	report.Delivered = true

	return nil
}

// collect accumulates one flat slice for the whole organization so that
// date groups merge across repositories.
func (s *PollService) collect(ctx context.Context, logger *slog.Logger, report *CycleReport) ([]domain.Activity, error) {
	var activities []domain.Activity

	for repo, err := range s.source.Repositories(ctx, s.cfg.Org) {
		if err != nil {
			return nil, fmt.Errorf("%w: list repositories of %s: %w", domain.ErrSourceUnavailable, s.cfg.Org, err)
		}
		report.Repositories++

		listings := []struct {
			name string
			seq  iter.Seq2[ports.RawActivity, error]
		}{
			{name: "issues", seq: s.source.OpenIssues(ctx, repo)},
			{name: "pull requests", seq: s.source.OpenPullRequests(ctx, repo)},
		}

		for _, listing := range listings {
			for raw, err := range listing.seq {
				if err != nil {
					return nil, fmt.Errorf("%w: list %s of %s: %w", domain.ErrSourceUnavailable, listing.name, repo.FullName(), err)
				}

				activity, err := Normalize(repo, raw)
				if err != nil {
					report.Skipped++
					logger.Warn("skipping malformed record", "repo", repo.FullName(), "url", raw.URL, "error", err)
					continue
				}
				activities = append(activities, activity)
			}
		}
	}

	return activities, nil
}

func (s *PollService) setState(state CycleState) {
	s.state.Store(int32(state))
}

func outcomeOf(report CycleReport) string {
	switch {
	case errors.Is(report.Err, domain.ErrSourceUnavailable):
		return OutcomeSourceError
	case report.Err != nil:
		return OutcomeDeliveryError
	case report.Delivered:
		return OutcomeDelivered
	default:
		return OutcomeEmpty
	}
}
