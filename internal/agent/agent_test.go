package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

// failingTools answers every call to one tool with an error envelope and
// forwards the rest to a real server.
type failingTools struct {
	server *tools.Server
	tool   string
	calls  []string
}

func (f *failingTools) CallTool(ctx context.Context, name string, params map[string]any) tools.Result {
	f.calls = append(f.calls, name)
	if name == f.tool {
		return tools.Result{Error: "backend unavailable", Kind: tools.KindExecution, Tool: name}
	}
	return f.server.CallTool(ctx, name, params)
}

func newTestTools() *tools.Client {
	return tools.NewClient(tools.NewServer())
}

func process(t *testing.T, h Handler, msg string) Outcome {
	t.Helper()
	return h.ProcessTask(context.Background(), NewTask("task_1", msg, h.Card().Name))
}

func TestKinds(t *testing.T) {
	if len(Kinds) != 3 || Kinds[0] != Travel || Kinds[1] != Weather || Kinds[2] != Budget {
		t.Fatalf("unexpected dispatch order %v", Kinds)
	}
	for _, k := range Kinds {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("cruise"); ok {
		t.Error("expected unknown kind")
	}
}

func TestNewAll(t *testing.T) {
	handlers := NewAll(newTestTools(), config.DefaultPlanning())
	want := []string{"Travel Agent", "Weather Advisor", "Budget Planner"}
	if len(handlers) != len(want) {
		t.Fatalf("expected %d handlers, got %d", len(want), len(handlers))
	}
	for i, h := range handlers {
		if h.Kind() != Kinds[i] {
			t.Errorf("handler %d: expected kind %v, got %v", i, Kinds[i], h.Kind())
		}
		card := h.Card()
		if card.Name != want[i] {
			t.Errorf("handler %d: expected %s, got %s", i, want[i], card.Name)
		}
		if len(card.Capabilities) != 2 {
			t.Errorf("%s: expected 2 capabilities, got %d", card.Name, len(card.Capabilities))
		}
	}
	if _, err := New(Kind(9), nil, config.DefaultPlanning()); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTaskResolve(t *testing.T) {
	task := NewTask("task_1", "hello", "Budget Planner")
	if task.Status != StatusPending {
		t.Fatalf("expected pending, got %s", task.Status)
	}
	if err := task.Resolve(Outcome{Status: StatusPending}); err == nil {
		t.Error("expected error resolving to pending")
	}
	if err := task.Resolve(inputRequired("Which city?")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if task.Status != StatusInputRequired || task.Note != "Which city?" {
		t.Errorf("unexpected task %+v", task)
	}
	if err := task.Resolve(completed("late")); err == nil {
		t.Error("expected second resolve to fail")
	}
	if task.Status != StatusInputRequired {
		t.Errorf("status changed after second resolve: %s", task.Status)
	}
}

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		rules KeywordClassifier
		msg   string
		want  string
	}{
		{TravelRules, "Plan a trip with FLIGHTS and a Hotel", IntentPlanTravel},
		{TravelRules, "show me flights", IntentFindFlights},
		{TravelRules, "any hotels nearby?", IntentFindHotels},
		{TravelRules, "plan my vacation", ""},
		{WeatherRules, "what is the weather like", IntentWeatherInfo},
		{WeatherRules, "best season to visit", IntentTravelSeason},
		{WeatherRules, "Best time for Tokyo?", IntentTravelSeason},
		{BudgetRules, "calculate my budget", IntentCalculateBudget},
		{BudgetRules, "optimise the budget", IntentOptimizeBudget},
		{BudgetRules, "optimize costs", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := firstIntent(tt.rules, tt.msg); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractors(t *testing.T) {
	if v, ok := ExtractOrigin("from LAX please"); !ok || v != "LAX" {
		t.Errorf("expected LAX, got %q %v", v, ok)
	}
	if _, ok := ExtractOrigin("I want to relax"); ok {
		t.Error("lowercase lax must not match")
	}
	for msg, want := range map[string]string{
		"trip to Maui":         "Hawaii",
		"HAWAII in july":       "Hawaii",
		"weekend in paris":     "Paris",
		"best time for Tokyo?": "Tokyo",
	} {
		if v, ok := ExtractDestination(msg); !ok || v != want {
			t.Errorf("%q: expected %s, got %q %v", msg, want, v, ok)
		}
	}
	if _, ok := ExtractDestination("somewhere warm"); ok {
		t.Error("expected no destination")
	}
	if m, ok := ExtractMonth("weather in August"); !ok || m != 8 {
		t.Errorf("expected 8, got %d %v", m, ok)
	}
	if _, ok := ExtractMonth("weather soon"); ok {
		t.Error("expected no month")
	}
	if v, ok := ExtractBudget("My Budget is 4500 dollars"); !ok || v != 4500 {
		t.Errorf("expected 4500, got %v %v", v, ok)
	}
	if _, ok := ExtractBudget("I have 4500 for the budget"); ok {
		t.Error("numbers before the budget token must not match")
	}
	if AirportFor("Hawaii") != "HNL" || AirportFor("Paris") != "CDG" || AirportFor("Oslo") != "Oslo" {
		t.Error("unexpected airport mapping")
	}
}

func TestTravelPlan(t *testing.T) {
	h := NewTravelAgent(newTestTools(), config.DefaultPlanning())

	out := process(t, h, "Plan a trip to Hawaii with flights and hotel")
	if out.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s: %s", out.Status, out.Message)
	}
	plan, ok := out.Result.(TravelPlan)
	if !ok {
		t.Fatalf("expected TravelPlan, got %T", out.Result)
	}
	// JFK-HNL is not a known route, so the fallback list applies.
	if plan.Flight.Airline != "Budget Air" || plan.Flight.Price != 450 {
		t.Errorf("expected cheapest fallback flight, got %+v", plan.Flight)
	}
	if plan.Hotel.Name != "Tropical Paradise" || plan.Hotel.TotalPrice != 1600 {
		t.Errorf("expected best rated hotel, got %+v", plan.Hotel)
	}
	if plan.TotalCost != plan.Flight.Price+plan.Hotel.TotalPrice || plan.TotalCost != 2050 {
		t.Errorf("expected total 2050, got %d", plan.TotalCost)
	}

	out = process(t, h, "flights and hotel from LAX to Maui")
	plan = out.Result.(TravelPlan)
	if plan.Flight.Airline != "Hawaiian" {
		t.Errorf("expected Hawaiian from LAX, got %+v", plan.Flight)
	}
}

func TestTravelPlanTieBreaks(t *testing.T) {
	flights := []tools.Flight{{Airline: "A", Price: 300}, {Airline: "B", Price: 300}}
	if got := cheapestFlight(flights); got.Airline != "A" {
		t.Errorf("expected first cheapest flight, got %s", got.Airline)
	}
	hotels := []tools.Hotel{{Name: "A", Rating: 4.5}, {Name: "B", Rating: 4.5}}
	if got := bestRatedHotel(hotels); got.Name != "A" {
		t.Errorf("expected first best hotel, got %s", got.Name)
	}
}

func TestTravelFindLists(t *testing.T) {
	h := NewTravelAgent(newTestTools(), config.DefaultPlanning())

	out := process(t, h, "Show me flights to Paris")
	opts, ok := out.Result.(FlightOptions)
	if !ok {
		t.Fatalf("expected FlightOptions, got %T", out.Result)
	}
	if len(opts.Flights) != 3 || opts.Flights[0].Airline != "Air France" {
		t.Errorf("expected unranked JFK-CDG list, got %+v", opts.Flights)
	}

	out = process(t, h, "Find a hotel in Tokyo")
	hotels, ok := out.Result.(HotelOptions)
	if !ok {
		t.Fatalf("expected HotelOptions, got %T", out.Result)
	}
	if len(hotels.Hotels) != 3 || hotels.Hotels[0].Name != "Sakura Inn" || hotels.Hotels[0].TotalPrice != 1000 {
		t.Errorf("unexpected hotels %+v", hotels.Hotels)
	}
}

func TestTravelNeedsInput(t *testing.T) {
	h := NewTravelAgent(newTestTools(), config.DefaultPlanning())
	out := process(t, h, "I want a vacation")
	if out.Status != StatusInputRequired {
		t.Fatalf("expected input-required, got %s", out.Status)
	}
	if !strings.Contains(out.Message, "flights, hotels or both") {
		t.Errorf("unexpected question %q", out.Message)
	}
}

func TestTravelToolFailure(t *testing.T) {
	ft := &failingTools{server: tools.NewServer(), tool: tools.SearchHotels}
	h := NewTravelAgent(ft, config.DefaultPlanning())

	out := process(t, h, "flights and hotel to Paris")
	if out.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if out.Message != "backend unavailable" {
		t.Errorf("expected tool error message, got %q", out.Message)
	}
	if out.Result != nil {
		t.Errorf("expected no result, got %+v", out.Result)
	}
}

func TestWeatherInfo(t *testing.T) {
	h := NewWeatherAdvisor(newTestTools(), config.DefaultPlanning())

	out := process(t, h, "What's the weather in Paris in July?")
	report, ok := out.Result.(tools.WeatherReport)
	if !ok {
		t.Fatalf("expected WeatherReport, got %T (%s)", out.Result, out.Message)
	}
	if report.Location != "Paris" || report.Month != 7 || report.Data.Temp != 25 {
		t.Errorf("unexpected report %+v", report)
	}

	out = process(t, h, "weather please")
	report = out.Result.(tools.WeatherReport)
	if report.Location != "Paris" || report.Month != 6 {
		t.Errorf("expected defaults Paris/6, got %+v", report)
	}
}

func TestWeatherSeason(t *testing.T) {
	ft := &failingTools{server: tools.NewServer()}
	h := NewWeatherAdvisor(ft, config.DefaultPlanning())

	out := process(t, h, "When is the best time to visit Hawaii?")
	advice, ok := out.Result.(SeasonAdvice)
	if !ok {
		t.Fatalf("expected SeasonAdvice, got %T (%s)", out.Result, out.Message)
	}
	// Hawaii rain days are {6:3, 7:2, 8:2}; July is the first minimum.
	if advice.BestMonth != 7 || advice.BestMonthName != "July" {
		t.Errorf("expected July, got %d %s", advice.BestMonth, advice.BestMonthName)
	}
	if len(advice.AllData) != 3 {
		t.Errorf("expected three months of data, got %v", advice.AllData)
	}
	if !strings.Contains(advice.Reason, "2 days") {
		t.Errorf("unexpected reason %q", advice.Reason)
	}
	if len(ft.calls) != 3 {
		t.Errorf("expected one lookup per month, got %v", ft.calls)
	}

	out = process(t, h, "best season for Tokyo")
	if advice := out.Result.(SeasonAdvice); advice.BestMonth != 8 {
		t.Errorf("expected August for Tokyo, got %d", advice.BestMonth)
	}
}

func TestWeatherFailures(t *testing.T) {
	h := NewWeatherAdvisor(&failingTools{server: tools.NewServer(), tool: tools.GetWeather}, config.DefaultPlanning())
	if out := process(t, h, "best time for Paris"); out.Status != StatusFailed {
		t.Errorf("expected failed, got %s", out.Status)
	}

	h = NewWeatherAdvisor(newTestTools(), config.DefaultPlanning())
	out := process(t, h, "Is it sunny?")
	if out.Status != StatusInputRequired {
		t.Errorf("expected input-required, got %s", out.Status)
	}
}

func TestBudgetCalculate(t *testing.T) {
	h := NewBudgetPlanner(newTestTools(), config.DefaultPlanning())

	out := process(t, h, "calculate my budget")
	b, ok := out.Result.(BudgetBreakdown)
	if !ok {
		t.Fatalf("expected BudgetBreakdown, got %T (%s)", out.Result, out.Message)
	}
	want := BudgetBreakdown{
		TotalBudget:      3000,
		FlightCost:       500,
		HotelCost:        1200,
		ActivitiesBudget: 1300,
		DailyBudget:      260,
		Assessment:       AssessmentSufficient,
	}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}

	out = process(t, h, "Calculate a budget of 2000")
	b = out.Result.(BudgetBreakdown)
	if b.ActivitiesBudget != 300 || b.Assessment != AssessmentTight {
		t.Errorf("expected tight 300, got %+v", b)
	}

	out = process(t, h, "calculate budget 1000")
	b = out.Result.(BudgetBreakdown)
	if b.ActivitiesBudget != -700 || b.DailyBudget != -140 {
		t.Errorf("expected negative split, got %+v", b)
	}
}

func TestBudgetOptimizeAndClarify(t *testing.T) {
	h := NewBudgetPlanner(newTestTools(), config.DefaultPlanning())

	out := process(t, h, "How can I optimize my budget?")
	tips, ok := out.Result.(BudgetTips)
	if !ok || len(tips.OptimizationTips) != 4 {
		t.Fatalf("expected four tips, got %+v", out.Result)
	}

	out = process(t, h, "money money money")
	if out.Status != StatusInputRequired || out.Message == "" {
		t.Errorf("expected clarifying question, got %+v", out)
	}
}

func TestBudgetToolFailure(t *testing.T) {
	h := NewBudgetPlanner(&failingTools{server: tools.NewServer(), tool: tools.CalculateBudget}, config.DefaultPlanning())
	out := process(t, h, "calculate my budget")
	if out.Status != StatusFailed || out.Message != "backend unavailable" {
		t.Errorf("expected failed outcome, got %+v", out)
	}
}
