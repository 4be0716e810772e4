package agent

import (
	"context"
	"log/slog"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

const (
	IntentCalculateBudget = "calculate_available_budget"
	IntentOptimizeBudget  = "optimize_budget"
)

var BudgetRules = KeywordClassifier{
	{Intent: IntentCalculateBudget, All: []string{"budget", "calculate"}},
	{Intent: IntentOptimizeBudget, All: []string{"budget"}, Any: []string{"optimize", "optimise"}},
}

const (
	AssessmentSufficient = "sufficient"
	AssessmentTight      = "tight"
)

var budgetTips = []string{
	"Compare different airlines for better prices",
	"Consider accommodation slightly outside the centre",
	"Book activities in advance for discounts",
	"Use public transport instead of taxis",
}

type BudgetBreakdown struct {
	TotalBudget      float64 `json:"total_budget"`
	FlightCost       float64 `json:"flight_cost"`
	HotelCost        float64 `json:"hotel_cost"`
	ActivitiesBudget float64 `json:"activities_budget"`
	DailyBudget      float64 `json:"daily_budget"`
	Assessment       string  `json:"budget_assessment"`
}

type BudgetTips struct {
	OptimizationTips []string `json:"optimization_tips"`
}

type BudgetPlanner struct {
	tools      ToolCaller
	defaults   config.DefaultsConfig
	classifier Classifier
}

func NewBudgetPlanner(tc ToolCaller, defaults config.DefaultsConfig) *BudgetPlanner {
	return &BudgetPlanner{tools: tc, defaults: defaults, classifier: BudgetRules}
}

func (a *BudgetPlanner) Kind() Kind { return Budget }

func (a *BudgetPlanner) Card() Card {
	return Card{
		Name:        "Budget Planner",
		Description: "Specialist for travel budget planning and optimization",
		Capabilities: []Capability{
			{ID: "budget_calculation", Name: "Budget calculation", Description: "Calculates the budget available for activities"},
			{ID: "budget_optimization", Name: "Budget optimization", Description: "Recommends ways to reduce costs"},
		},
	}
}

func (a *BudgetPlanner) ProcessTask(ctx context.Context, task *Task) Outcome {
	intent := firstIntent(a.classifier, task.Text())
	slog.Debug("budget planner classified task", "task", task.ID, "intent", intent)

	switch intent {
	case IntentCalculateBudget:
		return a.calculate(ctx, task.Text())
	case IntentOptimizeBudget:
		return completed(BudgetTips{OptimizationTips: append([]string(nil), budgetTips...)})
	default:
		return inputRequired("Would you like to calculate your available budget or get tips for optimizing it?")
	}
}

func (a *BudgetPlanner) calculate(ctx context.Context, msg string) Outcome {
	total, ok := ExtractBudget(msg)
	total = orDefault(total, ok, a.defaults.TotalBudget)

	res := a.tools.CallTool(ctx, tools.CalculateBudget, map[string]any{
		"total_budget": total,
		"flight_cost":  a.defaults.FlightCost,
		"hotel_cost":   a.defaults.HotelCost,
	})
	split, err := tools.Decode[tools.BudgetSplit](res)
	if err != nil {
		return failed(err.Error())
	}

	assessment := AssessmentTight
	if split.ActivitiesBudget > a.defaults.SufficientThreshold {
		assessment = AssessmentSufficient
	}
	return completed(BudgetBreakdown{
		TotalBudget:      total,
		FlightCost:       a.defaults.FlightCost,
		HotelCost:        a.defaults.HotelCost,
		ActivitiesBudget: split.ActivitiesBudget,
		DailyBudget:      split.ActivitiesBudget / float64(a.defaults.TripDays),
		Assessment:       assessment,
	})
}
