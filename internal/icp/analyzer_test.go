package icp

import (
	"math"
	"strings"
	"testing"

	"github.com/hs-platform/revintel/pkg/models"
)

func idealInput() models.ICPInput {
	return models.ICPInput{
		CompanyName:      "Acme SaaS",
		Industry:         "saas",
		EmployeeCount:    200,
		AnnualRevenueUSD: 20e6,
		GrowthRatePct:    50,
		TechMaturity:     5,
		PainAlignment:    5,
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := weightIndustry + weightEmployeeCount + weightRevenue +
		weightGrowth + weightTechMaturity + weightPainAlignment
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("criterion weights sum to %v, want 1.0", sum)
	}
}

func TestAnalyzeIdealProspect(t *testing.T) {
	a := NewAnalyzer()

	analysis, err := a.Analyze("cust-1", idealInput())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.Score != 100 {
		t.Errorf("ideal input should score 100, got %v", analysis.Score)
	}
	if analysis.Tier != 1 {
		t.Errorf("ideal input should be tier 1, got %d", analysis.Tier)
	}
	if len(analysis.Breakdown) != 6 {
		t.Errorf("expected 6 criteria, got %d", len(analysis.Breakdown))
	}
	if analysis.ID == "" || analysis.CustomerID != "cust-1" {
		t.Error("analysis should carry an ID and the customer")
	}
	if !strings.Contains(analysis.Summary, "tier 1") {
		t.Errorf("summary should name the tier: %q", analysis.Summary)
	}
}

func TestAnalyzePoorProspect(t *testing.T) {
	a := NewAnalyzer()

	analysis, err := a.Analyze("cust-1", models.ICPInput{
		Industry:         "agriculture",
		EmployeeCount:    5,
		AnnualRevenueUSD: 100000,
		GrowthRatePct:    -10,
		TechMaturity:     1,
		PainAlignment:    1,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.Tier != 4 {
		t.Errorf("poor prospect should be tier 4, got %d (score %v)", analysis.Tier, analysis.Score)
	}
}

func TestAnalyzeScoreMonotonicInGrowth(t *testing.T) {
	a := NewAnalyzer()

	low := idealInput()
	low.GrowthRatePct = 5
	high := idealInput()
	high.GrowthRatePct = 60

	lowResult, err := a.Analyze("c", low)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	highResult, err := a.Analyze("c", high)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if lowResult.Score >= highResult.Score {
		t.Errorf("faster growth should not score lower: %v >= %v", lowResult.Score, highResult.Score)
	}
}

func TestAnalyzeAdjacentIndustry(t *testing.T) {
	a := NewAnalyzer()

	input := idealInput()
	input.Industry = "B2B SaaS tools"
	analysis, err := a.Analyze("c", input)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	var industryScore float64
	for _, c := range analysis.Breakdown {
		if c.Criterion == "industry" {
			industryScore = c.Score
		}
	}
	if industryScore != 40 {
		t.Errorf("keyword match should score as adjacent (40), got %v", industryScore)
	}
}

func TestValidateInputCollectsAllProblems(t *testing.T) {
	err := ValidateInput(models.ICPInput{
		Industry:      "",
		EmployeeCount: -1,
		TechMaturity:  0,
		PainAlignment: 9,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"industry", "employee_count", "tech_maturity", "pain_alignment"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		tier  int
	}{
		{100, 1}, {85, 1}, {84.9, 2}, {70, 2}, {69.9, 3}, {50, 3}, {49.9, 4}, {0, 4},
	}
	for _, tt := range tests {
		if got := tierForScore(tt.score); got != tt.tier {
			t.Errorf("tierForScore(%v) = %d, want %d", tt.score, got, tt.tier)
		}
	}
}

func TestValidateResearch(t *testing.T) {
	complete := models.ResearchRecord{
		CompanyName:        "Acme",
		Website:            "https://acme.example",
		ProductDescription: "Widgets",
		ValueProp:          "Cheaper widgets",
		TargetCustomer:     "Widget buyers",
	}

	v := ValidateResearch(complete)
	if !v.Complete {
		t.Errorf("record should be complete, missing %v", v.MissingFields)
	}
	if v.FilledFields != v.TotalFields {
		t.Errorf("expected all fields filled, got %d/%d", v.FilledFields, v.TotalFields)
	}

	partial := complete
	partial.ValueProp = "  "
	partial.TargetCustomer = ""

	v = ValidateResearch(partial)
	if v.Complete {
		t.Error("record with blank fields should be incomplete")
	}
	if len(v.MissingFields) != 2 {
		t.Errorf("expected 2 missing fields, got %v", v.MissingFields)
	}
}
