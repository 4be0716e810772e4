package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

const (
	IntentWeatherInfo  = "get_weather_info"
	IntentTravelSeason = "recommend_travel_season"
)

var WeatherRules = KeywordClassifier{
	{Intent: IntentWeatherInfo, All: []string{"weather"}},
	{Intent: IntentTravelSeason, Any: []string{"best time", "best season"}},
}

// SeasonMonths are the candidate months for a travel season recommendation.
var SeasonMonths = []int{6, 7, 8}

type SeasonAdvice struct {
	Location      string                   `json:"location"`
	BestMonth     int                      `json:"best_month"`
	BestMonthName string                   `json:"best_month_name"`
	Reason        string                   `json:"reason"`
	AllData       map[int]tools.Conditions `json:"all_data"`
}

type WeatherAdvisor struct {
	tools      ToolCaller
	defaults   config.DefaultsConfig
	classifier Classifier
}

func NewWeatherAdvisor(tc ToolCaller, defaults config.DefaultsConfig) *WeatherAdvisor {
	return &WeatherAdvisor{tools: tc, defaults: defaults, classifier: WeatherRules}
}

func (a *WeatherAdvisor) Kind() Kind { return Weather }

func (a *WeatherAdvisor) Card() Card {
	return Card{
		Name:        "Weather Advisor",
		Description: "Specialist for weather advice and the best time to travel",
		Capabilities: []Capability{
			{ID: "weather_forecast", Name: "Weather forecast", Description: "Forecasts weather conditions for different places"},
			{ID: "travel_season_advice", Name: "Travel season advice", Description: "Recommends the best season for a destination"},
		},
	}
}

func (a *WeatherAdvisor) ProcessTask(ctx context.Context, task *Task) Outcome {
	intent := firstIntent(a.classifier, task.Text())
	slog.Debug("weather advisor classified task", "task", task.ID, "intent", intent)

	switch intent {
	case IntentWeatherInfo:
		return a.weatherInfo(ctx, task.Text())
	case IntentTravelSeason:
		return a.travelSeason(ctx, task.Text())
	default:
		return inputRequired("Would you like weather information for a specific place or a recommendation for the best time to travel?")
	}
}

func (a *WeatherAdvisor) location(msg string) string {
	loc, ok := ExtractDestination(msg)
	return orDefault(loc, ok, a.defaults.Destination)
}

func (a *WeatherAdvisor) lookup(ctx context.Context, location string, month int) (tools.WeatherReport, error) {
	res := a.tools.CallTool(ctx, tools.GetWeather, map[string]any{
		"location": location,
		"month":    month,
	})
	return tools.Decode[tools.WeatherReport](res)
}

func (a *WeatherAdvisor) weatherInfo(ctx context.Context, msg string) Outcome {
	month, ok := ExtractMonth(msg)
	month = orDefault(month, ok, a.defaults.Month)

	report, err := a.lookup(ctx, a.location(msg), month)
	if err != nil {
		return failed(err.Error())
	}
	return completed(report)
}

// travelSeason looks up every candidate month separately and picks the one
// with the fewest rain days, the earliest month winning ties.
func (a *WeatherAdvisor) travelSeason(ctx context.Context, msg string) Outcome {
	location := a.location(msg)
	all := make(map[int]tools.Conditions, len(SeasonMonths))

	best := 0
	for _, m := range SeasonMonths {
		report, err := a.lookup(ctx, location, m)
		if err != nil {
			return failed(err.Error())
		}
		all[m] = report.Data
		if best == 0 || report.Data.RainDays < all[best].RainDays {
			best = m
		}
	}

	data := all[best]
	return completed(SeasonAdvice{
		Location:      location,
		BestMonth:     best,
		BestMonthName: monthName(best),
		Reason:        fmt.Sprintf("Fewest rain days (%d days) and an average of %d°C", data.RainDays, data.Temp),
		AllData:       all,
	})
}

func monthName(m int) string {
	if name, ok := monthNames[m]; ok {
		return name
	}
	return fmt.Sprintf("month %d", m)
}
