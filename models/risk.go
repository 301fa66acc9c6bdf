package models

import (
	"math"
	"sort"
)

// LawReference is a statute section cited against a risk.
type LawReference struct {
	Section     string `json:"section"`
	Description string `json:"description"`
}

// RiskFinding is one legal risk identified in a document.
// Severity is on a 1-10 scale and Impact on 1-5; values outside are passed through.
type RiskFinding struct {
	Name         string         `json:"name"`
	Category     string         `json:"category"`
	Description  string         `json:"description"`
	WhyItMatters string         `json:"why_it_matters"`
	Mitigation   string         `json:"mitigation"`
	Occurrence   string         `json:"occurrence"`
	Severity     int            `json:"severity"`
	Impact       int            `json:"impact"`
	IPCSections  []LawReference `json:"ipc_sections"`
}

// SeverityBand buckets a severity score for display.
type SeverityBand string

const (
	BandCritical SeverityBand = "critical"
	BandHigh     SeverityBand = "high"
	BandMedium   SeverityBand = "medium"
	BandLow      SeverityBand = "low"
)

func BandFor(severity int) SeverityBand {
	switch {
	case severity >= 9:
		return BandCritical
	case severity >= 7:
		return BandHigh
	case severity >= 4:
		return BandMedium
	default:
		return BandLow
	}
}

func (r RiskFinding) Band() SeverityBand {
	return BandFor(r.Severity)
}

// RiskMetrics summarizes a set of findings for the dashboard.
type RiskMetrics struct {
	Total           int                  `json:"total"`
	AverageSeverity float64              `json:"average_severity"`
	MaxSeverity     int                  `json:"max_severity"`
	CriticalCount   int                  `json:"critical_count"`
	ByBand          map[SeverityBand]int `json:"by_band"`
}

func ComputeRiskMetrics(risks []RiskFinding) RiskMetrics {
	m := RiskMetrics{Total: len(risks), ByBand: map[SeverityBand]int{}}
	if len(risks) == 0 {
		return m
	}
	sum := 0
	for _, r := range risks {
		sum += r.Severity
		if r.Severity > m.MaxSeverity {
			m.MaxSeverity = r.Severity
		}
		band := r.Band()
		if band == BandCritical {
			m.CriticalCount++
		}
		m.ByBand[band]++
	}
	m.AverageSeverity = math.Round(float64(sum)/float64(len(risks))*10) / 10
	return m
}

// SortBySeverity orders findings from most to least severe, keeping model order on ties.
func SortBySeverity(risks []RiskFinding) []RiskFinding {
	out := make([]RiskFinding, len(risks))
	copy(out, risks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}
