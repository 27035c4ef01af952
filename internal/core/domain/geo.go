package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SubmittedLocation is a single position reported by a client at verification time.
// Nil coordinates mean the client did not send them.
type SubmittedLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // meters
}

// TargetLocation is the place a submission is checked against.
// Coordinates are ordered [lon, lat], GeoJSON style.
type TargetLocation struct {
	Coordinates  []float64 `json:"coordinates"`
	RadiusMeters *float64  `json:"radius_meters,omitempty"`
}

// NewTargetLocation builds a target from a point and radius.
func NewTargetLocation(p GeoPoint, radiusMeters float64) TargetLocation {
	return TargetLocation{
		Coordinates:  []float64{p.Lon, p.Lat},
		RadiusMeters: &radiusMeters,
	}
}

// VerificationResult is the verdict for one submitted-vs-target comparison.
type VerificationResult struct {
	Passed         bool     `json:"passed"`
	WithinRadius   bool     `json:"within_radius"`
	DistanceMeters *float64 `json:"distance_meters"`
	AllowedRadius  *float64 `json:"allowed_radius"`
	Message        string   `json:"message"`
}

// DeviceSignal carries the device-reported flags used by spoof detection.
type DeviceSignal struct {
	IsEmulator     bool `json:"is_emulator"`
	IsMockLocation bool `json:"is_mock_location"`
}

// SpoofCheck is one recorded heuristic.
type SpoofCheck struct {
	Check   string `json:"check"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// SpoofAssessment aggregates the spoof heuristics into a risk score in [0, 1].
type SpoofAssessment struct {
	Passed    bool         `json:"passed"`
	Checks    []SpoofCheck `json:"checks"`
	RiskScore float64      `json:"risk_score"`
}
