package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/airport-weather-fusion/internal/aviation"
	"github.com/i474232898/airport-weather-fusion/internal/store"
	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/airports", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"airports": service.Airports(),
		})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseAirportQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		airport, err := service.Airport(q.Airport)
		if err != nil {
			return mapError(err, "failed to fetch weather data")
		}

		snapshot, err := service.GetLatest(q.Airport)
		if err != nil {
			return mapError(err, "failed to fetch weather data")
		}

		return c.JSON(currentResponse(airport, snapshot))
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := service.GetRange(req.Airport.Airport, req.From, req.To)
		if err != nil {
			return mapError(err, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"airport":   weather.NormalizeICAO(req.Airport.Airport),
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	// Preview runs a one-off cycle with per-source max age overrides, e.g.
	// ?airport=KSPB&max_age=tempest-kspb:60,metar-kspb:0. Nothing is stored.
	v1.Get("/weather/preview", func(c *fiber.Ctx) error {
		q, err := parseAirportQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		overrides, err := parseMaxAges(c.Query("max_age"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		airport, err := service.Airport(q.Airport)
		if err != nil {
			return mapError(err, "failed to preview weather data")
		}

		snapshot, err := service.Preview(c.UserContext(), q.Airport, overrides)
		if err != nil {
			return mapError(err, "failed to preview weather data")
		}

		return c.JSON(currentResponse(airport, snapshot))
	})
}

func currentResponse(airport weather.Airport, snapshot weather.FusedSnapshot) fiber.Map {
	return fiber.Map{
		"airport":  airport,
		"snapshot": snapshot,
		"derived":  aviation.Derive(airport, snapshot),
		"display":  Display(snapshot),
	}
}

func mapError(err error, fallback string) error {
	switch {
	case errors.Is(err, weather.ErrUnknownAirport):
		return fiber.NewError(fiber.StatusNotFound, "unknown airport")
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no weather data for requested airport")
	case errors.Is(err, weather.ErrInvalidPolicy):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

// airportQuery holds the query parameter identifying an airport.
type airportQuery struct {
	Airport string `validate:"required,min=3,max=4,alphanum"`
}

func parseAirportQuery(c *fiber.Ctx) (airportQuery, error) {
	var q airportQuery

	q.Airport = strings.TrimSpace(c.Query("airport"))

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Airport airportQuery
	From    time.Time `validate:"required"`
	To      time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	q, err := parseAirportQuery(c)
	if err != nil {
		return err
	}
	h.Airport = q

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// parseMaxAges parses "source:seconds" pairs separated by commas.
func parseMaxAges(s string) (map[string]time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := make(map[string]time.Duration)
	for _, pair := range strings.Split(s, ",") {
		src, secs, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || src == "" {
			return nil, fmt.Errorf("invalid max_age entry %q; use source:seconds", pair)
		}
		n, err := strconv.Atoi(secs)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid max_age seconds for %s", src)
		}
		out[src] = time.Duration(n) * time.Second
	}
	return out, nil
}
