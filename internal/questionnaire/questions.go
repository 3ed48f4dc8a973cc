// Package questionnaire implements the investor intake form: per-question
// answers, per-asset-class sub-forms, derived completion state, and the
// final submission payload.
package questionnaire

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// Question ids mirror the advisory backend's session schema
const (
	QuestionInvestmentGoal  = "investment_goal"
	QuestionTimeHorizon     = "time_horizon"
	QuestionRiskTolerance   = "risk_tolerance"
	QuestionCurrentHoldings = "current_holdings"
	QuestionAdditionalNotes = "additional_notes"
)

// OtherOption is the literal option that opens a free-text branch
const OtherOption = "Other"

// Asset class labels offered by the holdings question
const (
	AssetUSEquity        = "US Equity (S&P 500 / Large Cap)"
	AssetTechnology      = "Technology Focused (Nasdaq / Tech Stocks)"
	AssetInternational   = "International Equity (Developed Markets)"
	AssetEmergingMarkets = "Emerging Markets"
	AssetBonds           = "Bond Portfolio (Government / Corporate)"
	AssetBalanced        = "Balanced Portfolio (Stocks and Bonds)"
	AssetRealEstate      = "Real Estate / REITs"
	AssetCash            = "Cash / Money Market"
)

// simpleAssetClasses are reported as a single USD total rather than an
// itemized positions table
var simpleAssetClasses = map[string]bool{
	AssetEmergingMarkets: true,
	AssetRealEstate:      true,
	AssetCash:            true,
}

// IsSimpleAssetClass reports whether label is reported as a single USD total
func IsSimpleAssetClass(label string) bool {
	return simpleAssetClasses[label]
}

// Catalog returns the questionnaire's question set in display order
func Catalog() []models.Question {
	return []models.Question{
		{
			ID:     QuestionInvestmentGoal,
			Prompt: "What is your primary investment goal?",
			Type:   models.QuestionSingleSelect,
			Options: []string{
				"Growth",
				"Income",
				"Capital Preservation",
				"Balanced Growth and Income",
				OtherOption,
			},
			Required: true,
		},
		{
			ID:     QuestionTimeHorizon,
			Prompt: "What is your investment time horizon?",
			Type:   models.QuestionSingleSelect,
			Options: []string{
				"Less than 1 year",
				"1-3 years",
				"3-5 years",
				"5+ years",
			},
			Required: true,
		},
		{
			ID:     QuestionRiskTolerance,
			Prompt: "How would you rate your risk tolerance?",
			Type:   models.QuestionSingleSelect,
			Options: []string{
				"1 - Conservative",
				"2 - Moderately Conservative",
				"3 - Moderate",
				"4 - Moderately Aggressive",
				"5 - Aggressive",
			},
			Required: true,
		},
		{
			ID:     QuestionCurrentHoldings,
			Prompt: "Which asset classes do you currently hold?",
			Type:   models.QuestionMultiSelect,
			Options: []string{
				AssetUSEquity,
				AssetTechnology,
				AssetInternational,
				AssetEmergingMarkets,
				AssetBonds,
				AssetBalanced,
				AssetRealEstate,
				AssetCash,
				OtherOption,
			},
			Required: true,
		},
		{
			ID:       QuestionAdditionalNotes,
			Prompt:   "Anything else your advisor should know?",
			Type:     models.QuestionFreeText,
			Required: false,
		},
	}
}

// parsePositiveAmount reports whether text is a parseable amount strictly
// greater than zero
func parsePositiveAmount(text string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, false
	}
	return amount, amount.IsPositive()
}
