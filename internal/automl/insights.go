package automl

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Insight is a single observation about a training run.
type Insight struct {
	Kind        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Actionable  bool   `json:"actionable"`
}

// Recommendation is one suggested action.
type Recommendation struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	EstimatedImpact string `json:"estimatedImpact,omitempty"`
	Timeframe       string `json:"timeframe,omitempty"`
	Effort          string `json:"effort"`
}

// RecommendationGroup collects recommendations under a category.
type RecommendationGroup struct {
	Category        string           `json:"category"`
	Priority        string           `json:"priority"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Report bundles everything derived from a result for presentation.
type Report struct {
	Insights        []Insight             `json:"insights"`
	Recommendations []RecommendationGroup `json:"recommendations"`
	QuickWins       []Recommendation      `json:"quickWins"`
}

// Insights turns a training result and the table statistics into readable
// findings and recommendations.
func Insights(r *ModelResults, s dataset.Statistics) Report {
	score := r.Score()
	top := topFeatures(r, 3)
	first := "(none)"
	var firstImp float64
	if len(top) > 0 {
		first = top[0].Feature
		firstImp = top[0].Importance
	}

	perf := "Consider collecting more data or feature engineering."
	impact := "High"
	switch {
	case score > 0.9:
		perf, impact = "Excellent performance!", "Low"
	case score > 0.8:
		perf, impact = "Good performance with room for improvement.", "Medium"
	}

	cells := s.TotalRows * s.TotalColumns
	missingPct := 0.0
	if cells > 0 {
		missingPct = float64(s.MissingValues) / float64(cells) * 100
	}
	qualityImpact := "Low"
	if missingPct > 10 {
		qualityImpact = "High"
	}

	out := Report{
		Insights: []Insight{
			{
				Kind:        "critical",
				Title:       "Key Performance Drivers",
				Description: fmt.Sprintf("%s is your strongest predictor (%.1f%% importance). Focus on optimizing this factor.", first, firstImp*100),
				Impact:      "High",
				Actionable:  true,
			},
			{
				Kind:        "opportunity",
				Title:       "Model Performance Analysis",
				Description: fmt.Sprintf("Your model achieves %.1f%% accuracy. %s", score*100, perf),
				Impact:      impact,
				Actionable:  score < 0.9,
			},
			{
				Kind:  "success",
				Title: "Data Quality Assessment",
				Description: fmt.Sprintf("Your dataset has %d missing values out of %d total data points (%.1f%% missing).",
					s.MissingValues, cells, missingPct),
				Impact:     qualityImpact,
				Actionable: s.MissingValues > 0,
			},
		},
	}

	names := make([]string, len(top))
	for i, f := range top {
		names[i] = f.Feature
	}
	weak := score < 0.8
	opsPriority, collect, collectImpact, collectEffort := "Low", "Maintain current data quality standards.", "Maintain performance", "Low"
	if weak {
		opsPriority, collect, collectImpact, collectEffort = "High", "Improve model accuracy by collecting more data on key features.", "10-20% accuracy improvement", "High"
	}
	out.Recommendations = []RecommendationGroup{
		{
			Category: "Revenue Optimization",
			Priority: "High",
			Recommendations: []Recommendation{
				{
					Title:           fmt.Sprintf("Focus on %s Optimization", first),
					Description:     fmt.Sprintf("This factor drives %.1f%% of your %s outcomes. Investing here could yield significant returns.", firstImp*100, r.TargetColumn),
					EstimatedImpact: "15-25% improvement",
					Timeframe:       "3-6 months",
					Effort:          "Medium",
				},
				{
					Title:           "Predictive Pricing Strategy",
					Description:     fmt.Sprintf("Use the model to predict optimal %s values and adjust pricing dynamically.", r.TargetColumn),
					EstimatedImpact: "10-15% revenue increase",
					Timeframe:       "1-3 months",
					Effort:          "Low",
				},
			},
		},
		{
			Category: "Customer Experience",
			Priority: "Medium",
			Recommendations: []Recommendation{
				{
					Title:           "Personalized Customer Segmentation",
					Description:     fmt.Sprintf("Segment customers based on the top %d features: %s.", len(names), strings.Join(names, ", ")),
					EstimatedImpact: "20-30% engagement boost",
					Timeframe:       "2-4 months",
					Effort:          "Medium",
				},
				{
					Title:           "Proactive Customer Support",
					Description:     "Use model predictions to identify customers at risk and provide proactive support.",
					EstimatedImpact: "25% reduction in churn",
					Timeframe:       "1-2 months",
					Effort:          "Low",
				},
			},
		},
		{
			Category: "Operational Efficiency",
			Priority: opsPriority,
			Recommendations: []Recommendation{
				{
					Title:           "Data Collection Enhancement",
					Description:     collect,
					EstimatedImpact: collectImpact,
					Timeframe:       "Ongoing",
					Effort:          collectEffort,
				},
				{
					Title:           "Automated Decision Making",
					Description:     fmt.Sprintf("Implement automated decisions for %s based on model predictions.", r.TargetColumn),
					EstimatedImpact: "30-40% time savings",
					Timeframe:       "2-3 months",
					Effort:          "Medium",
				},
			},
		},
	}

	second := first
	if len(top) > 1 {
		second = top[1].Feature
	}
	out.QuickWins = []Recommendation{
		{Title: fmt.Sprintf("Monitor %s Daily", first), Description: "Set up daily tracking and alerts for your most important predictor", Effort: "1 day", EstimatedImpact: "High"},
		{Title: "A/B Test Top Features", Description: fmt.Sprintf("Run experiments on %s and %s", first, second), Effort: "1 week", EstimatedImpact: "Medium"},
		{Title: "Create Executive Dashboard", Description: "Build a real-time dashboard showing key metrics and predictions", Effort: "3 days", EstimatedImpact: "High"},
		{Title: "Train Your Team", Description: "Educate stakeholders on interpreting and acting on model insights", Effort: "2 days", EstimatedImpact: "Medium"},
	}
	return out
}

func topFeatures(r *ModelResults, n int) []FeatureImportance {
	if len(r.FeatureImportance) < n {
		return r.FeatureImportance
	}
	return r.FeatureImportance[:n]
}
