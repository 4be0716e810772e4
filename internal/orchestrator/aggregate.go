package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

const summaryHeader = "Here is my summary based on our specialists' findings:"

// aggregate merges task outcomes in dispatch order. A single clarifying
// question turns the whole response into a prompt.
func aggregate(runs []*dispatched) *Response {
	var questions []string
	for _, r := range runs {
		if r.outcome.Status == agent.StatusInputRequired {
			questions = append(questions, r.outcome.Message)
		}
	}
	if len(questions) > 0 {
		return &Response{
			Status:  agent.StatusInputRequired,
			Message: strings.Join(questions, " "),
		}
	}

	details := make(map[string]any)
	lines := []string{summaryHeader, ""}
	for _, r := range runs {
		switch r.outcome.Status {
		case agent.StatusCompleted:
			details[r.name] = r.outcome.Result
			lines = append(lines, render(r.name, r.outcome.Result))
		case agent.StatusFailed:
			lines = append(lines, fmt.Sprintf("%s could not complete the request: %s", r.name, r.outcome.Message))
		}
	}

	return &Response{
		Status:          agent.StatusCompleted,
		Message:         strings.Join(lines, "\n"),
		DetailedResults: details,
	}
}

func render(name string, result any) string {
	switch v := result.(type) {
	case agent.TravelPlan:
		return fmt.Sprintf("Trip: %s flight ($%d, %s) and %s ($%d for the stay). Total cost: $%d.",
			v.Flight.Airline, v.Flight.Price, v.Flight.Duration, v.Hotel.Name, v.Hotel.TotalPrice, v.TotalCost)
	case agent.FlightOptions:
		if len(v.Flights) == 0 {
			return "Flights: no options found."
		}
		return fmt.Sprintf("Flights: %d options, from $%d.", len(v.Flights), minPrice(v.Flights, func(f tools.Flight) int { return f.Price }))
	case agent.HotelOptions:
		if len(v.Hotels) == 0 {
			return "Hotels: no options found."
		}
		return fmt.Sprintf("Hotels: %d options, from $%d per night.", len(v.Hotels), minPrice(v.Hotels, func(h tools.Hotel) int { return h.PricePerNight }))
	case tools.WeatherReport:
		return fmt.Sprintf("Weather in %s: %d°C, %s, %d rain days.", v.Location, v.Data.Temp, v.Data.Condition, v.Data.RainDays)
	case agent.SeasonAdvice:
		return fmt.Sprintf("Best time to visit %s: %s. %s.", v.Location, v.BestMonthName, v.Reason)
	case agent.BudgetBreakdown:
		return fmt.Sprintf("Budget: %s total budget, of which %s for activities (%s per day); budget is %s.",
			money(v.TotalBudget), money(v.ActivitiesBudget), money(v.DailyBudget), v.Assessment)
	case agent.BudgetTips:
		return "Budget tips: " + strings.Join(v.OptimizationTips, "; ") + "."
	default:
		return fmt.Sprintf("%s: %v", name, result)
	}
}

func minPrice[T any](items []T, price func(T) int) int {
	lowest := price(items[0])
	for _, it := range items[1:] {
		if p := price(it); p < lowest {
			lowest = p
		}
	}
	return lowest
}

func money(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("$%d", int64(v))
	}
	return fmt.Sprintf("$%.2f", v)
}
