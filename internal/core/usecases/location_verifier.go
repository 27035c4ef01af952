package usecases

import (
	"fmt"
	"math"
	"strconv"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// Failure messages returned by LocationVerifier.
const (
	MsgLocationMissing      = "Location data not provided"
	MsgTargetNotConfigured  = "Quest target location not configured"
	MsgInvalidCoordinates   = "Invalid coordinates"
	MsgDistanceUncomputable = "Distance could not be computed"
)

// VerificationPolicy holds the radius calibration applied to targets.
type VerificationPolicy struct {
	MinRadiusMeters     float64
	DefaultRadiusMeters float64
}

// DefaultVerificationPolicy is a 10m floor with a 50m default radius.
func DefaultVerificationPolicy() VerificationPolicy {
	return VerificationPolicy{MinRadiusMeters: 10, DefaultRadiusMeters: 50}
}

// LocationVerifier checks a submitted position against a target radius.
// It holds no state beyond its policy and is safe for concurrent use.
type LocationVerifier struct {
	policy VerificationPolicy
}

// NewLocationVerifier creates a new LocationVerifier.
func NewLocationVerifier(policy VerificationPolicy) LocationVerifier {
	return LocationVerifier{policy: policy}
}

// verification is the state threaded through the stages of one Verify call.
type verification struct {
	submitted domain.SubmittedLocation
	target    *domain.TargetLocation

	allowedRadius *float64
	userLat       float64
	userLon       float64
	targetLat     float64
	targetLon     float64
	distance      float64
}

// stageOutcome is what a stage reports back. The zero value means "continue".
type stageOutcome struct {
	failed  bool
	message string
}

func fail(message string) stageOutcome {
	return stageOutcome{failed: true, message: message}
}

type stage func(v *verification) stageOutcome

var verificationStages = []stage{
	checkPresence,
	checkTarget,
	checkRanges,
	measureDistance,
}

// Verify runs presence, target, range and distance checks in order and
// returns the first failure, or the distance verdict. It never panics.
func (lv LocationVerifier) Verify(submitted domain.SubmittedLocation, target *domain.TargetLocation) domain.VerificationResult {
	return lv.run(submitted, target, verificationStages)
}

func (lv LocationVerifier) run(submitted domain.SubmittedLocation, target *domain.TargetLocation, stages []stage) (result domain.VerificationResult) {
	v := &verification{submitted: submitted, target: target}
	if target != nil {
		r := lv.allowedRadius(target)
		v.allowedRadius = &r
	}

	defer func() {
		if r := recover(); r != nil {
			result = domain.VerificationResult{
				AllowedRadius: v.allowedRadius,
				Message:       fmt.Sprint(r),
			}
		}
	}()

	for _, s := range stages {
		if out := s(v); out.failed {
			return domain.VerificationResult{
				AllowedRadius: v.allowedRadius,
				Message:       out.message,
			}
		}
	}

	rounded := math.Round(v.distance)
	within := rounded <= *v.allowedRadius

	var msg string
	if within {
		msg = fmt.Sprintf("Location verified: %sm from target (allowed radius %sm)",
			formatMeters(rounded), formatMeters(*v.allowedRadius))
	} else {
		msg = fmt.Sprintf("Too far from target: %sm away (allowed radius %sm)",
			formatMeters(rounded), formatMeters(*v.allowedRadius))
	}

	return domain.VerificationResult{
		Passed:         within,
		WithinRadius:   within,
		DistanceMeters: &rounded,
		AllowedRadius:  v.allowedRadius,
		Message:        msg,
	}
}

// allowedRadius is max(MinRadius, radius), with DefaultRadius standing in for
// a missing, zero or non-finite radius.
func (lv LocationVerifier) allowedRadius(target *domain.TargetLocation) float64 {
	r := lv.policy.DefaultRadiusMeters
	if target.RadiusMeters != nil {
		given := *target.RadiusMeters
		if given != 0 && !math.IsNaN(given) && !math.IsInf(given, 0) {
			r = given
		}
	}
	return math.Max(lv.policy.MinRadiusMeters, r)
}

func checkPresence(v *verification) stageOutcome {
	if v.submitted.Latitude == nil || v.submitted.Longitude == nil {
		return fail(MsgLocationMissing)
	}
	v.userLat = *v.submitted.Latitude
	v.userLon = *v.submitted.Longitude
	return stageOutcome{}
}

func checkTarget(v *verification) stageOutcome {
	if v.target == nil || len(v.target.Coordinates) != 2 {
		return fail(MsgTargetNotConfigured)
	}
	v.targetLon = v.target.Coordinates[0]
	v.targetLat = v.target.Coordinates[1]
	return stageOutcome{}
}

func checkRanges(v *verification) stageOutcome {
	if !geospatial.IsValidCoordinates(v.userLat, v.userLon) ||
		!geospatial.IsValidCoordinates(v.targetLat, v.targetLon) {
		return fail(MsgInvalidCoordinates)
	}
	return stageOutcome{}
}

func measureDistance(v *verification) stageOutcome {
	d := geospatial.Distance(v.userLat, v.userLon, v.targetLat, v.targetLon)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return fail(MsgDistanceUncomputable)
	}
	v.distance = d
	return stageOutcome{}
}

func formatMeters(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
