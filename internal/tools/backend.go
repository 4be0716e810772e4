package tools

import (
	"context"
	"fmt"
)

// Tool names.
const (
	CalculateBudget = "calculate_budget"
	GetWeather      = "get_weather"
	SearchFlights   = "search_flights"
	SearchHotels    = "search_hotels"
)

// BudgetArgs uses pointers so that a missing amount is told apart from 0.
type BudgetArgs struct {
	TotalBudget *float64 `json:"total_budget" jsonschema:"required,description=Total budget for the trip" validate:"required"`
	FlightCost  *float64 `json:"flight_cost" jsonschema:"required,description=Cost of flights" validate:"required"`
	HotelCost   *float64 `json:"hotel_cost" jsonschema:"required,description=Cost of accommodation" validate:"required"`
}

type BudgetSplit struct {
	TotalBudget      float64 `json:"total_budget"`
	FlightCost       float64 `json:"flight_cost"`
	HotelCost        float64 `json:"hotel_cost"`
	ActivitiesBudget float64 `json:"activities_budget"`
}

type WeatherArgs struct {
	Location string `json:"location" jsonschema:"required,description=Name of the location" validate:"required"`
	Month    int    `json:"month" jsonschema:"required,description=Month (1-12)"`
}

type Conditions struct {
	Temp      int    `json:"temp"`
	Condition string `json:"condition"`
	RainDays  int    `json:"rain_days"`
}

type WeatherReport struct {
	Location string     `json:"location"`
	Month    int        `json:"month"`
	Data     Conditions `json:"data"`
}

type FlightArgs struct {
	Origin      string `json:"origin" jsonschema:"required,description=Departure airport" validate:"required"`
	Destination string `json:"destination" jsonschema:"required,description=Arrival airport" validate:"required"`
	Date        string `json:"date" jsonschema:"description=Travel date (YYYY-MM-DD)" validate:"omitempty,datetime=2006-01-02"`
}

type Flight struct {
	Airline  string `json:"airline"`
	Price    int    `json:"price"`
	Duration string `json:"duration"`
}

type FlightList struct {
	Flights []Flight `json:"flights"`
}

type HotelArgs struct {
	Location string `json:"location" jsonschema:"required,description=Name of the location" validate:"required"`
	CheckIn  string `json:"check_in" jsonschema:"description=Check-in date (YYYY-MM-DD)" validate:"omitempty,datetime=2006-01-02"`
	Nights   int    `json:"nights" jsonschema:"required,description=Number of nights" validate:"gte=1"`
}

type Hotel struct {
	Name          string  `json:"name"`
	PricePerNight int     `json:"price_per_night"`
	Rating        float64 `json:"rating"`
	TotalPrice    int     `json:"total_price"`
}

type HotelList struct {
	Hotels []Hotel `json:"hotels"`
}

var weatherTable = map[string]map[int]Conditions{
	"Hawaii": {
		6: {Temp: 28, Condition: "sunny", RainDays: 3},
		7: {Temp: 29, Condition: "sunny", RainDays: 2},
		8: {Temp: 29, Condition: "sunny", RainDays: 2},
	},
	"Paris": {
		6: {Temp: 22, Condition: "mixed", RainDays: 7},
		7: {Temp: 25, Condition: "sunny", RainDays: 5},
		8: {Temp: 24, Condition: "sunny", RainDays: 6},
	},
	"Tokyo": {
		6: {Temp: 24, Condition: "rainy", RainDays: 12},
		7: {Temp: 28, Condition: "humid", RainDays: 10},
		8: {Temp: 30, Condition: "humid", RainDays: 8},
	},
}

var flightTable = map[string][]Flight{
	"LAX-HNL": {
		{Airline: "Hawaiian", Price: 450, Duration: "5h 45m"},
		{Airline: "Delta", Price: 520, Duration: "5h 55m"},
		{Airline: "United", Price: 480, Duration: "6h 10m"},
	},
	"JFK-CDG": {
		{Airline: "Air France", Price: 780, Duration: "7h 30m"},
		{Airline: "Delta", Price: 820, Duration: "7h 20m"},
		{Airline: "United", Price: 750, Duration: "7h 45m"},
	},
}

var fallbackFlights = []Flight{
	{Airline: "Generic Air", Price: 500, Duration: "6h 0m"},
	{Airline: "Budget Air", Price: 450, Duration: "6h 30m"},
}

var hotelTable = map[string][]Hotel{
	"Hawaii": {
		{Name: "Beach Resort", PricePerNight: 240, Rating: 4.5},
		{Name: "Tropical Paradise", PricePerNight: 320, Rating: 4.8},
		{Name: "Ocean View Lodge", PricePerNight: 180, Rating: 4.0},
	},
	"Paris": {
		{Name: "Le Grand Hotel", PricePerNight: 270, Rating: 4.6},
		{Name: "Eiffel Apartments", PricePerNight: 210, Rating: 4.3},
		{Name: "Seine River Hotel", PricePerNight: 190, Rating: 4.1},
	},
	"Tokyo": {
		{Name: "Sakura Inn", PricePerNight: 200, Rating: 4.4},
		{Name: "Tokyo Skyline Hotel", PricePerNight: 280, Rating: 4.7},
		{Name: "Cherry Blossom Suites", PricePerNight: 240, Rating: 4.5},
	},
}

var fallbackHotels = []Hotel{
	{Name: "Standard Hotel", PricePerNight: 150, Rating: 3.8},
	{Name: "Comfort Inn", PricePerNight: 120, Rating: 3.5},
}

// Builtin returns the four travel planning tools.
func Builtin() []Tool {
	return []Tool{
		NewTool(CalculateBudget, "Calculates the budget left for activities", calculateBudget),
		NewTool(GetWeather, "Returns weather data for a location", getWeather),
		NewTool(SearchFlights, "Searches flights between two airports", searchFlights),
		NewTool(SearchHotels, "Searches hotels at a location", searchHotels),
	}
}

// The activities budget may go negative; that is reported, not rejected.
func calculateBudget(_ context.Context, args BudgetArgs) (any, error) {
	total, flight, hotel := *args.TotalBudget, *args.FlightCost, *args.HotelCost
	return BudgetSplit{
		TotalBudget:      total,
		FlightCost:       flight,
		HotelCost:        hotel,
		ActivitiesBudget: total - flight - hotel,
	}, nil
}

func getWeather(_ context.Context, args WeatherArgs) (any, error) {
	months, ok := weatherTable[args.Location]
	if !ok {
		return nil, fmt.Errorf("No weather data available for %s", args.Location)
	}
	data, ok := months[args.Month]
	if !ok {
		return nil, fmt.Errorf("No weather data for %s in month %d", args.Location, args.Month)
	}
	return WeatherReport{Location: args.Location, Month: args.Month, Data: data}, nil
}

func searchFlights(_ context.Context, args FlightArgs) (any, error) {
	flights, ok := flightTable[args.Origin+"-"+args.Destination]
	if !ok {
		flights = fallbackFlights
	}
	return FlightList{Flights: append([]Flight(nil), flights...)}, nil
}

func searchHotels(_ context.Context, args HotelArgs) (any, error) {
	ref, ok := hotelTable[args.Location]
	if !ok {
		ref = fallbackHotels
	}
	hotels := make([]Hotel, len(ref))
	for i, h := range ref {
		h.TotalPrice = h.PricePerNight * args.Nights
		hotels[i] = h
	}
	return HotelList{Hotels: hotels}, nil
}
