package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCoverage(t *testing.T) {
	tests := []struct {
		name         string
		activities   map[string]float64
		audienceSize float64
		wantCoverage float64
		wantUsers    float64
		wantFactor   float64
	}{
		{
			name:         "multi channel applies overlap factor",
			activities:   map[string]float64{"emailsSent": 500, "eventAttendees": 120},
			audienceSize: 1000,
			wantCoverage: 0.434, // round(620 × 0.7) = 434
			wantUsers:    434,
			wantFactor:   0.7,
		},
		{
			name:         "single channel counts everyone once",
			activities:   map[string]float64{"emailsSent": 500},
			audienceSize: 1000,
			wantCoverage: 0.5,
			wantUsers:    500,
			wantFactor:   1.0,
		},
		{
			name:         "clamped to full coverage",
			activities:   map[string]float64{"emailsSent": 5000},
			audienceSize: 1000,
			wantCoverage: 1.0,
			wantUsers:    5000,
			wantFactor:   1.0,
		},
		{
			name:         "zero counts do not open a channel",
			activities:   map[string]float64{"emailsSent": 500, "eventAttendees": 0},
			audienceSize: 1000,
			wantCoverage: 0.5,
			wantUsers:    500,
			wantFactor:   1.0,
		},
		{
			name:         "no positive activity",
			activities:   map[string]float64{"emailsSent": 0},
			audienceSize: 1000,
			wantCoverage: 0,
			wantUsers:    0,
			wantFactor:   1.0,
		},
		{
			name:         "zero audience yields zero coverage",
			activities:   map[string]float64{"emailsSent": 500},
			audienceSize: 0,
			wantCoverage: 0,
			wantUsers:    500,
			wantFactor:   1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := EstimateCoverage(tt.activities, tt.audienceSize)
			assert.InDelta(t, tt.wantCoverage, est.Coverage, 1e-9)
			assert.InDelta(t, tt.wantUsers, est.EstimatedUsers, 1e-9)
			assert.InDelta(t, tt.wantFactor, est.OverlapFactor, 1e-9)
		})
	}
}

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		recommendation string
		wantCategory   string
	}{
		{"Launch an awareness campaign for inactive users", "awareness"},
		{"Assign Copilot learning paths via the academy", "training"},
		{"Recruit champions from the power user tier", "champions"},
		{"Showcase Copilot Chat in Word and Excel", "feature"},
		{"Brief managers and secure executive sponsorship", "leadership"},
		{"Run use case workshops per team workflow", "usecase"},
		{"Do something unclassifiable", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCategory, func(t *testing.T) {
			tpl := TemplateFor(tt.recommendation)
			assert.Equal(t, tt.wantCategory, tpl.Category)
			assert.NotEmpty(t, tpl.Activities)
			assert.NotEmpty(t, tpl.SampleCounts)
		})
	}
}

func TestTemplateForIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "awareness", TemplateFor("AWARENESS blitz").Category)
}
