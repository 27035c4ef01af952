package domain

import (
	"time"
)

// Location is a point of interest that quests can send players to.
type Location struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category,omitempty"`
	Location  GeoPoint       `json:"location"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Distance  *float64       `json:"distance,omitempty"` // computed field
	CreatedAt time.Time      `json:"created_at"`
}

// LatLon projects the location onto a coordinate pair.
func (l Location) LatLon() (float64, float64) {
	return l.Location.Lat, l.Location.Lon
}

// QuestTarget is a stored verification target belonging to a quest step.
type QuestTarget struct {
	ID        string         `json:"id"`
	QuestID   string         `json:"quest_id"`
	Name      string         `json:"name"`
	Target    TargetLocation `json:"target"`
	CreatedAt time.Time      `json:"created_at"`
}

// Verdict combines the location verification and the spoof assessment for one submission.
type Verdict struct {
	TargetID  string             `json:"target_id,omitempty"`
	Result    VerificationResult `json:"result"`
	Spoof     SpoofAssessment    `json:"spoof"`
	Accepted  bool               `json:"accepted"`
	CheckedAt time.Time          `json:"checked_at"`
}
