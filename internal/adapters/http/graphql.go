package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services.
// Object fields resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	distanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Distance",
		Fields: graphql.Fields{
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"formatted":       &graphql.Field{Type: graphql.String},
			"bearing":         &graphql.Field{Type: graphql.Float},
			"direction":       &graphql.Field{Type: graphql.String},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"category":   &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"distance":   &graphql.Field{Type: graphql.Float},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VerificationResult",
		Fields: graphql.Fields{
			"passed":          &graphql.Field{Type: graphql.Boolean},
			"within_radius":   &graphql.Field{Type: graphql.Boolean},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"allowed_radius":  &graphql.Field{Type: graphql.Float},
			"message":         &graphql.Field{Type: graphql.String},
		},
	})

	spoofCheckType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SpoofCheck",
		Fields: graphql.Fields{
			"check":   &graphql.Field{Type: graphql.String},
			"passed":  &graphql.Field{Type: graphql.Boolean},
			"details": &graphql.Field{Type: graphql.String},
		},
	})

	spoofType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SpoofAssessment",
		Fields: graphql.Fields{
			"passed":     &graphql.Field{Type: graphql.Boolean},
			"checks":     &graphql.Field{Type: graphql.NewList(spoofCheckType)},
			"risk_score": &graphql.Field{Type: graphql.Float},
		},
	})

	verdictType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Verdict",
		Fields: graphql.Fields{
			"target_id":  &graphql.Field{Type: graphql.String},
			"result":     &graphql.Field{Type: resultType},
			"spoof":      &graphql.Field{Type: spoofType},
			"accepted":   &graphql.Field{Type: graphql.Boolean},
			"checked_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"distance": &graphql.Field{
				Type:        distanceType,
				Description: "Great-circle distance and bearing between two points",
				Args: graphql.FieldConfigArgument{
					"lat1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat1 := p.Args["lat1"].(float64)
					lon1 := p.Args["lon1"].(float64)
					lat2 := p.Args["lat2"].(float64)
					lon2 := p.Args["lon2"].(float64)
					if !geospatial.IsValidCoordinates(lat1, lon1) || !geospatial.IsValidCoordinates(lat2, lon2) {
						return nil, errors.New("coordinates out of range")
					}
					d := geospatial.Distance(lat1, lon1, lat2, lon2)
					b := geospatial.Bearing(lat1, lon1, lat2, lon2)
					return DistanceResponse{
						DistanceMeters: d,
						Formatted:      geospatial.FormatDistance(d),
						Bearing:        b,
						Direction:      geospatial.Direction(b),
					}, nil
				},
			},
			"nearbyLocations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Find locations near a point, closest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Nearby.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"verifyLocation": &graphql.Field{
				Type:        verdictType,
				Description: "Verify a position against a target; targetId takes precedence over inline coordinates",
				Args: graphql.FieldConfigArgument{
					"latitude":       &graphql.ArgumentConfig{Type: graphql.Float},
					"longitude":      &graphql.ArgumentConfig{Type: graphql.Float},
					"targetId":       &graphql.ArgumentConfig{Type: graphql.String},
					"targetLat":      &graphql.ArgumentConfig{Type: graphql.Float},
					"targetLon":      &graphql.ArgumentConfig{Type: graphql.Float},
					"radius":         &graphql.ArgumentConfig{Type: graphql.Float},
					"isEmulator":     &graphql.ArgumentConfig{Type: graphql.Boolean},
					"isMockLocation": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					submitted := domain.SubmittedLocation{
						Latitude:  floatArg(p.Args, "latitude"),
						Longitude: floatArg(p.Args, "longitude"),
					}

					var signal *domain.DeviceSignal
					emu, hasEmu := p.Args["isEmulator"].(bool)
					mock, hasMock := p.Args["isMockLocation"].(bool)
					if hasEmu || hasMock {
						signal = &domain.DeviceSignal{IsEmulator: emu, IsMockLocation: mock}
					}

					if id, ok := p.Args["targetId"].(string); ok && id != "" {
						return deps.Verification.Verify(p.Context, id, submitted, signal)
					}

					var target *domain.TargetLocation
					lat, lon := floatArg(p.Args, "targetLat"), floatArg(p.Args, "targetLon")
					if lat != nil && lon != nil {
						target = &domain.TargetLocation{
							Coordinates:  []float64{*lon, *lat},
							RadiusMeters: floatArg(p.Args, "radius"),
						}
					}
					verdict := deps.Verification.VerifyAdHoc(submitted, target, signal)
					return verdict, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func floatArg(args map[string]interface{}, name string) *float64 {
	v, ok := args[name].(float64)
	if !ok {
		return nil
	}
	return &v
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
