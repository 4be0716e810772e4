package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, s *Server, name string, params map[string]any) Result {
	t.Helper()
	res := s.CallTool(context.Background(), name, params)
	// The envelope never carries both a payload and an error.
	require.False(t, res.Result != nil && res.Error != "", "envelope mixes result and error: %+v", res)
	require.False(t, res.Result == nil && res.Error == "", "envelope is empty")
	return res
}

func TestListTools(t *testing.T) {
	s := NewServer()
	tools := s.ListTools()

	require.Len(t, tools, 4)
	assert.Equal(t, []string{CalculateBudget, GetWeather, SearchFlights, SearchHotels}, s.Names())

	weather := tools[GetWeather]
	assert.Equal(t, GetWeather, weather.Name)
	assert.Equal(t, map[string]string{
		"location": "Name of the location",
		"month":    "Month (1-12)",
	}, weather.Parameters)

	hotels := tools[SearchHotels]
	assert.Len(t, hotels.Parameters, 3)
	assert.Contains(t, hotels.Parameters, "check_in")

	var schema map[string]any
	require.NoError(t, json.Unmarshal(hotels.InputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []any{"location", "nights"}, schema["required"])

	// Deterministic across calls.
	assert.Equal(t, tools, s.ListTools())
}

func TestCallToolNotFound(t *testing.T) {
	res := call(t, NewServer(), "book_cruise", nil)

	assert.Equal(t, "Tool 'book_cruise' not found", res.Error)
	assert.Equal(t, KindNotFound, res.Kind)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.True(t, errors.Is(err, ErrUnknownTool))
	assert.False(t, errors.Is(err, ErrToolExecution))

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "book_cruise", te.Tool)
}

func TestCalculateBudget(t *testing.T) {
	tests := []struct {
		name                 string
		total, flight, hotel float64
		want                 float64
	}{
		{"default split", 3000, 500, 1200, 1300},
		{"exact", 1700, 500, 1200, 0},
		{"negative is reported", 1000, 500, 1200, -700},
	}

	s := NewServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, CalculateBudget, map[string]any{
				"total_budget": tt.total,
				"flight_cost":  tt.flight,
				"hotel_cost":   tt.hotel,
			})
			split, err := Decode[BudgetSplit](res)
			require.NoError(t, err)
			assert.Equal(t, tt.want, split.ActivitiesBudget)
			assert.Equal(t, tt.total, split.TotalBudget)
		})
	}
}

func TestCalculateBudgetMissingArguments(t *testing.T) {
	s := NewServer()

	res := call(t, s, CalculateBudget, map[string]any{})
	assert.Nil(t, res.Result)
	assert.Equal(t, KindExecution, res.Kind)
	assert.Contains(t, res.Error, "invalid arguments")

	res = call(t, s, CalculateBudget, map[string]any{"total_budget": 3000, "flight_cost": 500})
	assert.True(t, errors.Is(res.Err(), ErrToolExecution))

	// Zero is a valid amount.
	res = call(t, s, CalculateBudget, map[string]any{"total_budget": 0, "flight_cost": 0, "hotel_cost": 0})
	split, err := Decode[BudgetSplit](res)
	require.NoError(t, err)
	assert.Equal(t, float64(0), split.ActivitiesBudget)
}

func TestGetWeather(t *testing.T) {
	s := NewServer()

	res := call(t, s, GetWeather, map[string]any{"location": "Hawaii", "month": 7})
	report, err := Decode[WeatherReport](res)
	require.NoError(t, err)
	assert.Equal(t, WeatherReport{
		Location: "Hawaii",
		Month:    7,
		Data:     Conditions{Temp: 29, Condition: "sunny", RainDays: 2},
	}, report)

	res = call(t, s, GetWeather, map[string]any{"location": "Tokyo", "month": 6})
	report, err = Decode[WeatherReport](res)
	require.NoError(t, err)
	assert.Equal(t, 12, report.Data.RainDays)

	res = call(t, s, GetWeather, map[string]any{"location": "Berlin", "month": 6})
	assert.Equal(t, "No weather data available for Berlin", res.Error)
	assert.Equal(t, KindExecution, res.Kind)
	assert.True(t, errors.Is(res.Err(), ErrToolExecution))

	res = call(t, s, GetWeather, map[string]any{"location": "Paris", "month": 12})
	assert.Equal(t, "No weather data for Paris in month 12", res.Error)
}

func TestGetWeatherInvalidArguments(t *testing.T) {
	s := NewServer()

	res := call(t, s, GetWeather, map[string]any{"month": 6})
	assert.Equal(t, KindExecution, res.Kind)
	assert.Contains(t, res.Error, "invalid arguments")

	res = call(t, s, GetWeather, map[string]any{"location": "Paris", "month": "june"})
	assert.Equal(t, KindExecution, res.Kind)
	assert.Contains(t, res.Error, "invalid arguments")
}

func TestSearchFlights(t *testing.T) {
	s := NewServer()

	res := call(t, s, SearchFlights, map[string]any{"origin": "LAX", "destination": "HNL", "date": "2025-06-15"})
	list, err := Decode[FlightList](res)
	require.NoError(t, err)
	require.Len(t, list.Flights, 3)
	assert.Equal(t, Flight{Airline: "Hawaiian", Price: 450, Duration: "5h 45m"}, list.Flights[0])

	res = call(t, s, SearchFlights, map[string]any{"origin": "JFK", "destination": "CDG"})
	list, err = Decode[FlightList](res)
	require.NoError(t, err)
	assert.Equal(t, "Air France", list.Flights[0].Airline)

	res = call(t, s, SearchFlights, map[string]any{"origin": "SFO", "destination": "SYD", "date": "2025-06-15"})
	list, err = Decode[FlightList](res)
	require.NoError(t, err)
	assert.Equal(t, []Flight{
		{Airline: "Generic Air", Price: 500, Duration: "6h 0m"},
		{Airline: "Budget Air", Price: 450, Duration: "6h 30m"},
	}, list.Flights)

	res = call(t, s, SearchFlights, map[string]any{"origin": "SFO", "destination": "SYD", "date": "15/06/2025"})
	assert.Contains(t, res.Error, "invalid arguments")
}

func TestSearchHotels(t *testing.T) {
	s := NewServer()

	res := call(t, s, SearchHotels, map[string]any{"location": "Hawaii", "check_in": "2025-06-15", "nights": 5})
	list, err := Decode[HotelList](res)
	require.NoError(t, err)
	require.Len(t, list.Hotels, 3)
	for _, h := range list.Hotels {
		assert.Equal(t, h.PricePerNight*5, h.TotalPrice, h.Name)
	}
	assert.Equal(t, 1600, list.Hotels[1].TotalPrice)

	res = call(t, s, SearchHotels, map[string]any{"location": "Atlantis", "nights": 2})
	list, err = Decode[HotelList](res)
	require.NoError(t, err)
	assert.Equal(t, []Hotel{
		{Name: "Standard Hotel", PricePerNight: 150, Rating: 3.8, TotalPrice: 300},
		{Name: "Comfort Inn", PricePerNight: 120, Rating: 3.5, TotalPrice: 240},
	}, list.Hotels)

	// Reference tables are untouched by the computed totals.
	for _, h := range hotelTable["Hawaii"] {
		assert.Zero(t, h.TotalPrice)
	}
	for _, h := range fallbackHotels {
		assert.Zero(t, h.TotalPrice)
	}

	res = call(t, s, SearchHotels, map[string]any{"location": "Paris", "nights": 0})
	assert.Contains(t, res.Error, "invalid arguments")
}

type panicArgs struct {
	Value string `json:"value"`
}

func TestCallToolRecoversPanic(t *testing.T) {
	s := NewServer(NewTool("explode", "always panics", func(_ context.Context, _ panicArgs) (any, error) {
		panic("boom")
	}))

	res := call(t, s, "explode", map[string]any{"value": "x"})
	assert.Equal(t, KindExecution, res.Kind)
	assert.Contains(t, res.Error, "boom")
}

func TestCallToolHandlerError(t *testing.T) {
	s := NewServer(NewTool("fail", "always fails", func(_ context.Context, _ panicArgs) (any, error) {
		return nil, errors.New("backend down")
	}))

	res := call(t, s, "fail", nil)
	assert.Equal(t, "backend down", res.Error)
	assert.Equal(t, "fail", res.Tool)
}

func TestCallToolEmptyErrorMessage(t *testing.T) {
	s := NewServer(NewTool("silent", "fails without a message", func(_ context.Context, _ panicArgs) (any, error) {
		return nil, errors.New("")
	}))

	res := call(t, s, "silent", nil)
	assert.True(t, res.Failed())
	assert.Equal(t, "tool execution failed", res.Error)
	assert.Nil(t, res.Result)
}

func TestDecodeFromGenericPayload(t *testing.T) {
	res := Result{Result: map[string]any{
		"flights": []any{map[string]any{"airline": "Delta", "price": float64(520), "duration": "5h 55m"}},
	}}
	list, err := Decode[FlightList](res)
	require.NoError(t, err)
	assert.Equal(t, []Flight{{Airline: "Delta", Price: 520, Duration: "5h 55m"}}, list.Flights)

	_, err = Decode[FlightList](Result{})
	assert.Error(t, err)

	_, err = Decode[FlightList](Result{Error: "nope"})
	assert.True(t, errors.Is(err, ErrToolExecution))
}
