// Package icp scores prospect companies against the ideal customer profile.
package icp

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/pkg/models"
)

// Criterion weights. They must sum to 1.0; see TestWeightsSumToOne.
const (
	weightIndustry      = 0.20
	weightEmployeeCount = 0.15
	weightRevenue       = 0.15
	weightGrowth        = 0.20
	weightTechMaturity  = 0.15
	weightPainAlignment = 0.15
)

// Tier score cutoffs.
const (
	tier1Cutoff = 85.0
	tier2Cutoff = 70.0
	tier3Cutoff = 50.0
)

// Target industry fit scores. Industries not listed score as adjacent (40)
// when they contain a known keyword, otherwise out-of-profile (15).
var industryScores = map[string]float64{
	"saas":                  100,
	"software":              95,
	"fintech":               90,
	"healthtech":            85,
	"ecommerce":             75,
	"martech":               75,
	"professional services": 60,
	"manufacturing":         45,
}

// Analyzer computes ICP scores and tiers.
type Analyzer struct{}

// NewAnalyzer creates an ICP analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze scores the input and returns a stored-ready analysis.
func (a *Analyzer) Analyze(customerID string, input models.ICPInput) (*models.ICPAnalysis, error) {
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	breakdown := []models.CriterionScore{
		a.scoreIndustry(input.Industry),
		a.scoreEmployeeCount(input.EmployeeCount),
		a.scoreRevenue(input.AnnualRevenueUSD),
		a.scoreGrowth(input.GrowthRatePct),
		a.scoreTechMaturity(input.TechMaturity),
		a.scorePainAlignment(input.PainAlignment),
	}

	var total float64
	for _, c := range breakdown {
		total += c.Score * c.Weight
	}

	tier := tierForScore(total)

	return &models.ICPAnalysis{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Input:      input,
		Score:      total,
		Tier:       tier,
		Breakdown:  breakdown,
		Summary:    summarize(input.CompanyName, total, tier),
		CreatedAt:  time.Now(),
	}, nil
}

func (a *Analyzer) scoreIndustry(industry string) models.CriterionScore {
	normalized := strings.ToLower(strings.TrimSpace(industry))

	score, ok := industryScores[normalized]
	reason := fmt.Sprintf("industry %q matches the target profile", industry)
	if !ok {
		score = 15
		reason = fmt.Sprintf("industry %q is outside the target profile", industry)
		for known := range industryScores {
			if strings.Contains(normalized, known) {
				score = 40
				reason = fmt.Sprintf("industry %q is adjacent to target industry %q", industry, known)
				break
			}
		}
	}

	return models.CriterionScore{
		Criterion: "industry",
		Score:     score,
		Weight:    weightIndustry,
		Reason:    reason,
	}
}

func (a *Analyzer) scoreEmployeeCount(count int) models.CriterionScore {
	// Sweet spot is mid-market: 50-500 seats.
	var score float64
	var reason string
	switch {
	case count >= 50 && count <= 500:
		score = 100
		reason = "mid-market headcount, in the sweet spot"
	case count > 500 && count <= 2000:
		score = 70
		reason = "upper mid-market, longer sales cycle expected"
	case count >= 20 && count < 50:
		score = 60
		reason = "small team, may lack budget ownership"
	case count > 2000:
		score = 40
		reason = "enterprise headcount, outside core motion"
	default:
		score = 20
		reason = "below minimum viable team size"
	}
	return models.CriterionScore{
		Criterion: "employee_count",
		Score:     score,
		Weight:    weightEmployeeCount,
		Reason:    reason,
	}
}

func (a *Analyzer) scoreRevenue(revenueUSD float64) models.CriterionScore {
	var score float64
	var reason string
	switch {
	case revenueUSD >= 5e6 && revenueUSD <= 100e6:
		score = 100
		reason = "revenue in the $5M-$100M target band"
	case revenueUSD > 100e6 && revenueUSD <= 500e6:
		score = 65
		reason = "above target band, likely has incumbent tooling"
	case revenueUSD >= 1e6 && revenueUSD < 5e6:
		score = 55
		reason = "early revenue, budget risk"
	case revenueUSD > 500e6:
		score = 35
		reason = "enterprise revenue, outside core motion"
	default:
		score = 15
		reason = "pre-revenue or sub-$1M"
	}
	return models.CriterionScore{
		Criterion: "annual_revenue",
		Score:     score,
		Weight:    weightRevenue,
		Reason:    reason,
	}
}

func (a *Analyzer) scoreGrowth(growthPct float64) models.CriterionScore {
	var score float64
	var reason string
	switch {
	case growthPct >= 40:
		score = 100
		reason = "hypergrowth, urgent need for revenue tooling"
	case growthPct >= 20:
		score = 85
		reason = "strong growth"
	case growthPct >= 10:
		score = 60
		reason = "moderate growth"
	case growthPct >= 0:
		score = 35
		reason = "flat growth, discretionary budget unlikely"
	default:
		score = 10
		reason = "contracting revenue"
	}
	return models.CriterionScore{
		Criterion: "growth_rate",
		Score:     score,
		Weight:    weightGrowth,
		Reason:    reason,
	}
}

func (a *Analyzer) scoreTechMaturity(maturity int) models.CriterionScore {
	// 1-5 scale maps linearly; a modern stack adopts faster.
	score := float64(maturity-1) * 25
	reason := fmt.Sprintf("tech maturity %d/5", maturity)
	return models.CriterionScore{
		Criterion: "tech_maturity",
		Score:     score,
		Weight:    weightTechMaturity,
		Reason:    reason,
	}
}

func (a *Analyzer) scorePainAlignment(alignment int) models.CriterionScore {
	score := float64(alignment-1) * 25
	reason := fmt.Sprintf("pain alignment %d/5", alignment)
	return models.CriterionScore{
		Criterion: "pain_alignment",
		Score:     score,
		Weight:    weightPainAlignment,
		Reason:    reason,
	}
}

// ValidateInput checks an ICP input for out-of-range values. It returns a
// list-style error naming every bad field so callers can surface all of
// them at once.
func ValidateInput(input models.ICPInput) error {
	var problems []string
	if strings.TrimSpace(input.Industry) == "" {
		problems = append(problems, "industry is required")
	}
	if input.EmployeeCount < 0 {
		problems = append(problems, "employee_count cannot be negative")
	}
	if input.AnnualRevenueUSD < 0 {
		problems = append(problems, "annual_revenue_usd cannot be negative")
	}
	if input.TechMaturity < 1 || input.TechMaturity > 5 {
		problems = append(problems, "tech_maturity must be 1-5")
	}
	if input.PainAlignment < 1 || input.PainAlignment > 5 {
		problems = append(problems, "pain_alignment must be 1-5")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid ICP input: %s", strings.Join(problems, "; "))
	}
	return nil
}

func tierForScore(score float64) int {
	switch {
	case score >= tier1Cutoff:
		return 1
	case score >= tier2Cutoff:
		return 2
	case score >= tier3Cutoff:
		return 3
	default:
		return 4
	}
}

func summarize(company string, score float64, tier int) string {
	label := map[int]string{
		1: "ideal fit",
		2: "strong fit",
		3: "possible fit",
		4: "poor fit",
	}[tier]
	if company == "" {
		company = "Prospect"
	}
	return fmt.Sprintf("%s scores %.1f/100 (tier %d, %s)", company, score, tier, label)
}
