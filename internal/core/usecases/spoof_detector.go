package usecases

import (
	"math"

	"github.com/samirrijal/questgeo/internal/core/domain"
)

// Spoof check names, in the order they are recorded.
const (
	CheckEmulator     = "emulator"
	CheckMockLocation = "mock_location"
)

// SpoofPolicy calibrates the spoof heuristic.
type SpoofPolicy struct {
	CheckWeight   float64 // risk added by each triggered check
	PassThreshold float64 // highest risk score that still passes
}

// DefaultSpoofPolicy weights each check at 0.6 against a 0.5 threshold,
// so any single triggered check fails the assessment.
func DefaultSpoofPolicy() SpoofPolicy {
	return SpoofPolicy{CheckWeight: 0.6, PassThreshold: 0.5}
}

// SpoofDetector scores device signals for signs of a falsified position.
type SpoofDetector struct {
	policy SpoofPolicy
}

// NewSpoofDetector creates a new SpoofDetector.
func NewSpoofDetector(policy SpoofPolicy) SpoofDetector {
	return SpoofDetector{policy: policy}
}

// Assess scores the signal. A nil signal skips the heuristic and passes.
func (sd SpoofDetector) Assess(signal *domain.DeviceSignal) domain.SpoofAssessment {
	if signal == nil {
		return domain.SpoofAssessment{Passed: true, Checks: []domain.SpoofCheck{}, RiskScore: 0}
	}

	var risk float64
	checks := make([]domain.SpoofCheck, 0, 2)

	record := func(name string, triggered bool, hit, clean string) {
		details := clean
		if triggered {
			risk += sd.policy.CheckWeight
			details = hit
		}
		checks = append(checks, domain.SpoofCheck{Check: name, Passed: !triggered, Details: details})
	}

	record(CheckEmulator, signal.IsEmulator,
		"Device reports running in an emulator", "No emulator detected")
	record(CheckMockLocation, signal.IsMockLocation,
		"Device reports mock location provider enabled", "No mock location provider detected")

	risk = math.Min(1, risk)
	return domain.SpoofAssessment{
		Passed:    risk <= sd.policy.PassThreshold,
		Checks:    checks,
		RiskScore: risk,
	}
}
