package domain

import "strings"

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

const (
	lowRiskCeiling    = 30
	mediumRiskCeiling = 70
	MaxRiskScore      = 100
)

// RiskLevelFor buckets a 0-100 score: LOW <= 30, MEDIUM 31-70, HIGH > 70.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score <= lowRiskCeiling:
		return RiskLow
	case score <= mediumRiskCeiling:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ParseRiskLevel accepts a case-insensitive level name.
func ParseRiskLevel(v string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(v))) {
	case RiskLow:
		return RiskLow, true
	case RiskMedium:
		return RiskMedium, true
	case RiskHigh:
		return RiskHigh, true
	default:
		return "", false
	}
}

// Range returns the inclusive score bounds for the level.
func (l RiskLevel) Range() (int, int) {
	switch l {
	case RiskLow:
		return 0, lowRiskCeiling
	case RiskMedium:
		return lowRiskCeiling + 1, mediumRiskCeiling
	case RiskHigh:
		return mediumRiskCeiling + 1, MaxRiskScore
	default:
		return 0, MaxRiskScore
	}
}
