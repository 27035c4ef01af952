package http

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/core/usecases"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// maxBBoxLatitude keeps bounding boxes away from the poles, where the
// longitude span diverges.
const maxBBoxLatitude = 89.0

// DistanceResponse describes the great-circle relation between two points.
type DistanceResponse struct {
	DistanceMeters float64 `json:"distance_meters"`
	Formatted      string  `json:"formatted"`
	Bearing        float64 `json:"bearing"`
	Direction      string  `json:"direction"`
}

// VerifyRequest is the body of an ad hoc verification.
type VerifyRequest struct {
	Location domain.SubmittedLocation `json:"location"`
	Target   *domain.TargetLocation   `json:"target"`
	Device   *domain.DeviceSignal     `json:"device,omitempty"`
}

// TargetVerifyRequest is the body of a verification against a stored target.
type TargetVerifyRequest struct {
	Location domain.SubmittedLocation `json:"location"`
	Device   *domain.DeviceSignal     `json:"device,omitempty"`
}

// queryFloat parses a required float query parameter.
func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, errors.New(name + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(name + " must be a number")
	}
	return v, nil
}

// queryPoint parses a required lat/lon pair and checks its range.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (lat, lon float64, err error) {
	if lat, err = queryFloat(c, latKey); err != nil {
		return 0, 0, err
	}
	if lon, err = queryFloat(c, lonKey); err != nil {
		return 0, 0, err
	}
	if !geospatial.IsValidCoordinates(lat, lon) {
		return 0, 0, errors.New(latKey + "/" + lonKey + " out of range")
	}
	return lat, lon, nil
}

// DistanceHandler returns distance, bearing and compass direction between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat1, lon1, err := queryPoint(c, "lat1", "lon1")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lat2, lon2, err := queryPoint(c, "lat2", "lon2")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		d := geospatial.Distance(lat1, lon1, lat2, lon2)
		b := geospatial.Bearing(lat1, lon1, lat2, lon2)

		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(DistanceResponse{
			DistanceMeters: d,
			Formatted:      geospatial.FormatDistance(d),
			Bearing:        b,
			Direction:      geospatial.Direction(b),
		})
	}
}

// WithinHandler checks whether a point lies inside a radius around a target.
func WithinHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lon, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		targetLat, targetLon, err := queryPoint(c, "target_lat", "target_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius, err := queryFloat(c, "radius")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if radius < 0 {
			return errBadRequest(c, "radius must not be negative")
		}

		return c.JSON(geospatial.IsWithinRadius(lat, lon, targetLat, targetLon, radius))
	}
}

// BoundingBoxHandler returns the lat/lon box enclosing a radius around a point.
func BoundingBoxHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lon, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if math.Abs(lat) >= maxBBoxLatitude {
			return errBadRequest(c, "bounding boxes are not supported at the poles")
		}
		radius, err := queryFloat(c, "radius")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if radius <= 0 {
			return errBadRequest(c, "radius must be positive")
		}

		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(geospatial.BoundingBox(lat, lon, radius))
	}
}

// NearbyLocationsHandler returns locations within a radius of a point, closest first.
func NearbyLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lon, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 20)

		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}

		locs, err := deps.Nearby.FindNearby(c.UserContext(), lat, lon, radius, limit)
		if errors.Is(err, usecases.ErrInvalidCoordinates) {
			return errBadRequest(c, err.Error())
		}
		if err != nil {
			return errInternal(c, err)
		}
		if locs == nil {
			locs = []domain.Location{}
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(locs)
	}
}

// VerifyHandler verifies a submitted location against a target given in the body.
// A failed check is still a 200: the verdict carries the reason.
func VerifyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req VerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		verdict := deps.Verification.VerifyAdHoc(req.Location, req.Target, req.Device)
		return c.JSON(verdict)
	}
}

// TargetVerifyHandler verifies a submitted location against a stored quest target.
func TargetVerifyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "target id is required")
		}

		var req TargetVerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		verdict, err := deps.Verification.Verify(c.UserContext(), id, req.Location, req.Device)
		if errors.Is(err, usecases.ErrTargetNotFound) {
			return errNotFound(c, "quest target not found")
		}
		if err != nil {
			return errInternal(c, err)
		}
		return c.JSON(verdict)
	}
}

// SpoofAssessHandler scores a device signal without checking any location.
func SpoofAssessHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var signal domain.DeviceSignal
		if err := c.BodyParser(&signal); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return c.JSON(deps.Verification.AssessDevice(&signal))
	}
}
