package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

const (
	IntentPlanTravel  = "plan_travel"
	IntentFindFlights = "find_flights"
	IntentFindHotels  = "find_hotels"
)

// TravelRules is the default intent table of the travel agent.
var TravelRules = KeywordClassifier{
	{Intent: IntentPlanTravel, All: []string{"flights", "hotel"}},
	{Intent: IntentFindFlights, All: []string{"flights"}},
	{Intent: IntentFindHotels, All: []string{"hotel"}},
}

// TravelPlan is the cheapest flight combined with the best rated hotel.
type TravelPlan struct {
	Flight    tools.Flight `json:"flight"`
	Hotel     tools.Hotel  `json:"hotel"`
	TotalCost int          `json:"total_cost"`
}

type FlightOptions struct {
	Flights []tools.Flight `json:"flights"`
}

type HotelOptions struct {
	Hotels []tools.Hotel `json:"hotels"`
}

type TravelAgent struct {
	tools      ToolCaller
	defaults   config.DefaultsConfig
	classifier Classifier
}

func NewTravelAgent(tc ToolCaller, defaults config.DefaultsConfig) *TravelAgent {
	return &TravelAgent{tools: tc, defaults: defaults, classifier: TravelRules}
}

func (a *TravelAgent) Kind() Kind { return Travel }

func (a *TravelAgent) Card() Card {
	return Card{
		Name:        "Travel Agent",
		Description: "Specialist for travel bookings, flights and hotels",
		Capabilities: []Capability{
			{ID: "flight_booking", Name: "Flight booking", Description: "Finds the best flights for your trip"},
			{ID: "hotel_booking", Name: "Hotel booking", Description: "Finds suitable accommodation for your stay"},
		},
	}
}

func (a *TravelAgent) ProcessTask(ctx context.Context, task *Task) Outcome {
	intent := firstIntent(a.classifier, task.Text())
	slog.Debug("travel agent classified task", "task", task.ID, "intent", intent)

	switch intent {
	case IntentPlanTravel:
		return a.planTravel(ctx, task.Text())
	case IntentFindFlights:
		return a.findFlights(ctx, task.Text())
	case IntentFindHotels:
		return a.findHotels(ctx, task.Text())
	default:
		return inputRequired("I'm not sure what you are looking for. Would you like flights, hotels or both?")
	}
}

type tripSlots struct {
	origin      string
	destination string
	date        string
	nights      int
}

func (a *TravelAgent) slots(msg string) tripSlots {
	origin, ok := ExtractOrigin(msg)
	origin = orDefault(origin, ok, a.defaults.Origin)
	dest, ok := ExtractDestination(msg)
	dest = orDefault(dest, ok, a.defaults.Destination)
	return tripSlots{
		origin:      origin,
		destination: dest,
		date:        a.defaults.TravelDate,
		nights:      a.defaults.Nights,
	}
}

func (a *TravelAgent) searchFlights(ctx context.Context, s tripSlots) ([]tools.Flight, error) {
	res := a.tools.CallTool(ctx, tools.SearchFlights, map[string]any{
		"origin":      s.origin,
		"destination": AirportFor(s.destination),
		"date":        s.date,
	})
	list, err := tools.Decode[tools.FlightList](res)
	if err != nil {
		return nil, err
	}
	return list.Flights, nil
}

func (a *TravelAgent) searchHotels(ctx context.Context, s tripSlots) ([]tools.Hotel, error) {
	res := a.tools.CallTool(ctx, tools.SearchHotels, map[string]any{
		"location": s.destination,
		"check_in": s.date,
		"nights":   s.nights,
	})
	list, err := tools.Decode[tools.HotelList](res)
	if err != nil {
		return nil, err
	}
	return list.Hotels, nil
}

func (a *TravelAgent) planTravel(ctx context.Context, msg string) Outcome {
	s := a.slots(msg)

	flights, err := a.searchFlights(ctx, s)
	if err != nil {
		return failed(err.Error())
	}
	hotels, err := a.searchHotels(ctx, s)
	if err != nil {
		return failed(err.Error())
	}
	if len(flights) == 0 {
		return failed(fmt.Sprintf("no flights found from %s to %s", s.origin, s.destination))
	}
	if len(hotels) == 0 {
		return failed(fmt.Sprintf("no hotels found in %s", s.destination))
	}

	flight := cheapestFlight(flights)
	hotel := bestRatedHotel(hotels)
	return completed(TravelPlan{
		Flight:    flight,
		Hotel:     hotel,
		TotalCost: flight.Price + hotel.TotalPrice,
	})
}

func (a *TravelAgent) findFlights(ctx context.Context, msg string) Outcome {
	flights, err := a.searchFlights(ctx, a.slots(msg))
	if err != nil {
		return failed(err.Error())
	}
	return completed(FlightOptions{Flights: flights})
}

func (a *TravelAgent) findHotels(ctx context.Context, msg string) Outcome {
	hotels, err := a.searchHotels(ctx, a.slots(msg))
	if err != nil {
		return failed(err.Error())
	}
	return completed(HotelOptions{Hotels: hotels})
}

// First entry wins ties.
func cheapestFlight(flights []tools.Flight) tools.Flight {
	best := flights[0]
	for _, f := range flights[1:] {
		if f.Price < best.Price {
			best = f
		}
	}
	return best
}

// First entry wins ties.
func bestRatedHotel(hotels []tools.Hotel) tools.Hotel {
	best := hotels[0]
	for _, h := range hotels[1:] {
		if h.Rating > best.Rating {
			best = h
		}
	}
	return best
}
