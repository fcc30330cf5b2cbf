package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/clock"
	"github.com/mavuno/agrolink/internal/connectivity"
	"github.com/mavuno/agrolink/internal/diagnosis"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/notifier"
	"github.com/mavuno/agrolink/internal/queue"
	"github.com/mavuno/agrolink/internal/repository"
)

// SubmissionQueue is the part of queue.OfflineQueue the service uses.
type SubmissionQueue interface {
	AddItem(ctx context.Context, s domain.DiagnosisSubmission) queue.QueueItem[domain.DiagnosisSubmission]
	Len() int
	IsProcessing() bool
}

// Limiter paces model calls; satisfied by ratelimiter.Limiter.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Receipt acknowledges a queued submission.
type Receipt struct {
	ClientID    string    `json:"client_id"`
	ItemID      string    `json:"item_id"`
	QueuedAt    time.Time `json:"queued_at"`
	QueueLength int       `json:"queue_length"`
}

// SyncStatus is what the client shows next to its sync indicator.
type SyncStatus struct {
	Pending  int  `json:"pending"`
	Draining bool `json:"draining"`
	Online   bool `json:"online"`
}

// DiagnosisService accepts diagnosis submissions into the offline queue and,
// as the queue's processor, turns each one into a stored case.
type DiagnosisService struct {
	diagnoser diagnosis.Diagnoser
	cases     repository.CaseRepository
	limiter   Limiter
	notifier  notifier.Notifier
	net       connectivity.Checker
	clock     clock.Clock
	logger    *zap.Logger

	q SubmissionQueue

	// OnModelLatency observes the duration of each diagnoser call.
	OnModelLatency func(time.Duration)
}

func NewDiagnosisService(
	diagnoser diagnosis.Diagnoser,
	cases repository.CaseRepository,
	limiter Limiter,
	n notifier.Notifier,
	net connectivity.Checker,
	clk clock.Clock,
	logger *zap.Logger,
) *DiagnosisService {
	return &DiagnosisService{
		diagnoser: diagnoser,
		cases:     cases,
		limiter:   limiter,
		notifier:  n,
		net:       net,
		clock:     clk,
		logger:    logger,
	}
}

// Bind attaches the queue. The queue is built with s.Process as its
// processor, so it can only be attached after construction.
func (s *DiagnosisService) Bind(q SubmissionQueue) {
	s.q = q
}

// Submit validates a submission and queues it. It never waits for the
// diagnosis; the caller gets a receipt immediately.
func (s *DiagnosisService) Submit(ctx context.Context, sub domain.DiagnosisSubmission) (*Receipt, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if s.q == nil {
		return nil, errors.New("diagnosis queue not bound")
	}
	if sub.ClientID == "" {
		sub.ClientID = uuid.NewString()
	}

	item := s.q.AddItem(ctx, sub)
	return &Receipt{
		ClientID:    sub.ClientID,
		ItemID:      item.ID,
		QueuedAt:    item.EnqueuedAt,
		QueueLength: s.q.Len(),
	}, nil
}

// Process is the queue processor. Any failure returns false so the
// submission stays at the head of the queue for the next drain. Case
// creation is idempotent on the client id, so a retry after a late failure
// does not duplicate the case.
func (s *DiagnosisService) Process(ctx context.Context, sub domain.DiagnosisSubmission) (bool, error) {
	log := s.logger.With(zap.String("client_id", sub.ClientID))

	if err := s.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	diag, err := s.diagnoser.Diagnose(ctx, sub.Image, sub.UserQuery)
	if s.OnModelLatency != nil {
		s.OnModelLatency(time.Since(start))
	}
	if err != nil {
		return false, fmt.Errorf("diagnose: %w", err)
	}

	c, err := s.cases.Create(ctx, &domain.DiagnosisCase{
		ID:        uuid.NewString(),
		ClientID:  sub.ClientID,
		FarmerID:  sub.FarmerID,
		Crop:      diag.Crop,
		Label:     diag.Label,
		Diagnosis: *diag,
		Risk:      domain.RiskForPest(diag.Label),
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("create case: %w", err)
	}

	if err := s.notifier.CaseSynced(ctx, c); err != nil {
		return false, fmt.Errorf("notify case synced: %w", err)
	}

	log.Info("diagnosis synced",
		zap.String("case_id", c.ID), zap.String("label", c.Label), zap.String("risk", string(c.Risk)))
	return true, nil
}

func (s *DiagnosisService) Status() SyncStatus {
	st := SyncStatus{Online: s.net.Online()}
	if s.q != nil {
		st.Pending = s.q.Len()
		st.Draining = s.q.IsProcessing()
	}
	return st
}

func (s *DiagnosisService) Cases(ctx context.Context) ([]*domain.DiagnosisCase, error) {
	return s.cases.List(ctx)
}

func (s *DiagnosisService) Case(ctx context.Context, id string) (*domain.DiagnosisCase, error) {
	return s.cases.GetByID(ctx, id)
}
