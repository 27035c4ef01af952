package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/core/ports"
	"github.com/samirrijal/questgeo/internal/pkg/metrics"
)

// ErrTargetNotFound is returned when a quest target id is unknown.
var ErrTargetNotFound = errors.New("quest target not found")

var tracer = otel.Tracer("github.com/samirrijal/questgeo/internal/core/usecases")

// VerificationService verifies submissions against stored quest targets
// and broadcasts the verdicts.
type VerificationService struct {
	targets   ports.TargetRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	verifier  LocationVerifier
	detector  SpoofDetector
	now       func() time.Time
}

// NewVerificationService creates a new VerificationService. cache and publisher may be nil.
func NewVerificationService(
	targets ports.TargetRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	verifier LocationVerifier,
	detector SpoofDetector,
) *VerificationService {
	return &VerificationService{
		targets:   targets,
		cache:     cache,
		publisher: publisher,
		verifier:  verifier,
		detector:  detector,
		now:       time.Now,
	}
}

// Verify checks a submission against the stored target and publishes the verdict.
// Only target lookup failures are returned as errors; a failed check is a verdict.
func (s *VerificationService) Verify(
	ctx context.Context,
	targetID string,
	submitted domain.SubmittedLocation,
	signal *domain.DeviceSignal,
) (*domain.Verdict, error) {
	ctx, span := tracer.Start(ctx, "VerificationService.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("quest.target_id", targetID))

	target, err := s.target(ctx, targetID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	verdict := s.VerifyAdHoc(submitted, &target.Target, signal)
	verdict.TargetID = target.ID
	span.SetAttributes(
		attribute.Bool("verification.accepted", verdict.Accepted),
		attribute.Float64("verification.risk_score", verdict.Spoof.RiskScore),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishVerification(ctx, &verdict); err != nil {
			metrics.VerdictPublishErrors.Inc()
			slog.WarnContext(ctx, "publish verdict failed", "target_id", targetID, "error", err)
		}
	}

	return &verdict, nil
}

// VerifyAdHoc runs the verification and spoof heuristics against an
// explicit target, without touching storage.
func (s *VerificationService) VerifyAdHoc(
	submitted domain.SubmittedLocation,
	target *domain.TargetLocation,
	signal *domain.DeviceSignal,
) domain.Verdict {
	result := s.verifier.Verify(submitted, target)
	spoof := s.detector.Assess(signal)

	verdict := domain.Verdict{
		Result:    result,
		Spoof:     spoof,
		Accepted:  result.Passed && spoof.Passed,
		CheckedAt: s.now().UTC(),
	}
	observeVerdict(verdict)
	return verdict
}

// AssessDevice runs only the spoof heuristic.
func (s *VerificationService) AssessDevice(signal *domain.DeviceSignal) domain.SpoofAssessment {
	return s.detector.Assess(signal)
}

func (s *VerificationService) target(ctx context.Context, id string) (*domain.QuestTarget, error) {
	cacheKey := "targets:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var t domain.QuestTarget
			if err := json.Unmarshal(data, &t); err == nil {
				metrics.CacheHits.WithLabelValues("target").Inc()
				return &t, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("target").Inc()
	}

	t, err := s.targets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get target %s: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("get target %s: %w", id, ErrTargetNotFound)
	}

	if s.cache != nil {
		if data, err := json.Marshal(t); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min for a single target
		}
	}

	return t, nil
}

func observeVerdict(v domain.Verdict) {
	outcome := "rejected"
	switch {
	case v.Accepted:
		outcome = "accepted"
	case v.Result.Passed && !v.Spoof.Passed:
		outcome = "spoof_suspected"
	case v.Result.DistanceMeters == nil:
		outcome = "invalid"
	}
	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	metrics.SpoofRiskScore.Observe(v.Spoof.RiskScore)
	if v.Result.DistanceMeters != nil {
		metrics.VerificationDistance.Observe(*v.Result.DistanceMeters)
	}
}
