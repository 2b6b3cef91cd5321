// Package activity provides the outreach-coverage estimator and the
// per-category activity templates used to suggest what to log.
//
// The estimator here is a preview heuristic: it applies a fixed 0.7
// overlap factor when touches arrive over multiple channels. It is a
// different code path from outcome scoring's coverage, which sums raw
// reach against a max-audience baseline; the two may disagree for the
// same underlying events.
package activity

import (
	"math"
	"strings"
)

// Estimate is the result of a coverage estimation.
type Estimate struct {
	Coverage       float64 `json:"coverage"`
	TotalTouches   float64 `json:"total_touches"`
	EstimatedUsers float64 `json:"estimated_users"`
	OverlapFactor  float64 `json:"overlap_factor"`
}

// Fixed uniqueness factor assumed when more than one channel has
// positive touches.
const multiChannelOverlap = 0.7

// EstimateCoverage estimates what share of the audience the named
// activity counts reached.
//
// Touches are summed over activities with positive counts; with more
// than one active channel the overlap factor discounts double-counted
// users. The estimate is rounded to whole users and the coverage
// clamped to [0,1]. A zero audience yields zero coverage.
func EstimateCoverage(activities map[string]float64, audienceSize float64) Estimate {
	est := Estimate{OverlapFactor: 1.0}
	var channels int
	for _, count := range activities {
		if count <= 0 {
			continue
		}
		channels++
		est.TotalTouches += count
	}
	if channels == 0 {
		return est
	}
	if channels > 1 {
		est.OverlapFactor = multiChannelOverlap
	}
	est.EstimatedUsers = math.Round(est.TotalTouches * est.OverlapFactor)
	if audienceSize > 0 {
		est.Coverage = math.Min(est.EstimatedUsers/audienceSize, 1.0)
	}
	return est
}

// Type describes one loggable activity within a template.
type Type struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Template suggests which activities to log for a recommendation, with
// sample numbers sized for a typical rollout.
type Template struct {
	Category     string             `json:"category"`
	Activities   []Type             `json:"activities"`
	AudienceSize float64            `json:"audience_size"`
	SampleCounts map[string]float64 `json:"sample_counts"`
	Explanation  string             `json:"explanation"`
}

type templateRule struct {
	keywords []string
	template Template
}

// templateRules is checked in order; the first keyword hit wins.
var templateRules = []templateRule{
	{
		keywords: []string{"awareness", "campaign", "communicate"},
		template: Template{
			Category: "awareness",
			Activities: []Type{
				{ID: "emailsSent", Label: "Emails Sent", Description: "Users who received awareness emails"},
				{ID: "teamsMessages", Label: "Teams Messages", Description: "Users reached via Teams announcements"},
				{ID: "eventAttendees", Label: "Kickoff Event Attendees", Description: "Users who attended launch event"},
				{ID: "yammerViews", Label: "Yammer/Viva Engage Views", Description: "Users who viewed posts"},
			},
			AudienceSize: 1000,
			SampleCounts: map[string]float64{
				"emailsSent": 500, "teamsMessages": 300, "eventAttendees": 120, "yammerViews": 450,
			},
			Explanation: "Coverage = (Total users reached through any channel) / Total audience. If a user received both email and Teams message, count them once.",
		},
	},
	{
		keywords: []string{"training", "learning", "course", "academy"},
		template: Template{
			Category: "training",
			Activities: []Type{
				{ID: "learningAssigned", Label: "Learning Paths Assigned", Description: "Users assigned Copilot learning paths"},
				{ID: "trainingCompleted", Label: "Training Completed", Description: "Users who finished training"},
				{ID: "officeHoursAttendees", Label: "Office Hours Attendees", Description: "Users attending Q&A sessions"},
				{ID: "certifications", Label: "Certifications Earned", Description: "Users who got certified"},
			},
			AudienceSize: 800,
			SampleCounts: map[string]float64{
				"learningAssigned": 400, "trainingCompleted": 280, "officeHoursAttendees": 85, "certifications": 150,
			},
			Explanation: "Coverage = (Unique users who engaged with learning) / Total audience. High completion rates show strong engagement.",
		},
	},
	{
		keywords: []string{"champion", "power user", "super user", "advocate"},
		template: Template{
			Category: "champions",
			Activities: []Type{
				{ID: "championsRecruited", Label: "Champions Recruited", Description: "Users who joined champions program"},
				{ID: "oneOnOneSessions", Label: "1-on-1 Coaching Sessions", Description: "Individual coaching provided"},
				{ID: "peerSupport", Label: "Peer Support Interactions", Description: "Users helped by champions"},
				{ID: "showcaseEvents", Label: "Showcase Event Attendees", Description: "Users attending demo sessions"},
			},
			AudienceSize: 500,
			SampleCounts: map[string]float64{
				"championsRecruited": 25, "oneOnOneSessions": 60, "peerSupport": 150, "showcaseEvents": 95,
			},
			Explanation: "Coverage = (Champions + Users they helped) / Total audience. Champions create multiplier effect.",
		},
	},
	{
		keywords: []string{"feature", "copilot chat", "word", "excel"},
		template: Template{
			Category: "feature",
			Activities: []Type{
				{ID: "demoAttendees", Label: "Feature Demo Attendees", Description: "Users who attended demos"},
				{ID: "tipsShared", Label: "Tips & Tricks Shared", Description: "Users who received tips"},
				{ID: "useCaseGuides", Label: "Use Case Guides Sent", Description: "Users who got practical guides"},
				{ID: "pilotUsers", Label: "Pilot/Early Adopters", Description: "Users testing the feature"},
			},
			AudienceSize: 700,
			SampleCounts: map[string]float64{
				"demoAttendees": 200, "tipsShared": 350, "useCaseGuides": 450, "pilotUsers": 75,
			},
			Explanation: "Coverage = (Users exposed to feature through any method) / Total audience. Multiple touchpoints increase adoption.",
		},
	},
	{
		keywords: []string{"manager", "leadership", "executive", "sponsor"},
		template: Template{
			Category: "leadership",
			Activities: []Type{
				{ID: "managerBriefings", Label: "Manager Briefings", Description: "Managers who attended briefings"},
				{ID: "teamMeetings", Label: "Team Meetings with Copilot Topic", Description: "Users in teams discussing Copilot"},
				{ID: "managerToolkits", Label: "Manager Toolkits Sent", Description: "Managers with enablement materials"},
				{ID: "teamGoalsSet", Label: "Teams with Copilot Goals", Description: "Teams with adoption targets"},
			},
			AudienceSize: 600,
			SampleCounts: map[string]float64{
				"managerBriefings": 45, "teamMeetings": 180, "managerToolkits": 45, "teamGoalsSet": 30,
			},
			Explanation: "Coverage = (Users whose managers are engaged) / Total audience. Manager activation drives team adoption.",
		},
	},
	{
		keywords: []string{"use case", "scenario", "workflow"},
		template: Template{
			Category: "usecase",
			Activities: []Type{
				{ID: "useCaseWorkshops", Label: "Use Case Workshops", Description: "Users attending hands-on workshops"},
				{ID: "templatesShared", Label: "Templates/Prompts Shared", Description: "Users who got prompt libraries"},
				{ID: "successStories", Label: "Success Stories Shared", Description: "Users who saw peer examples"},
				{ID: "practiceSessions", Label: "Practice Sessions", Description: "Users in guided practice"},
			},
			AudienceSize: 850,
			SampleCounts: map[string]float64{
				"useCaseWorkshops": 150, "templatesShared": 400, "successStories": 500, "practiceSessions": 100,
			},
			Explanation: "Coverage = (Users exposed to practical use cases) / Total audience. Real examples accelerate adoption.",
		},
	},
}

var defaultTemplate = Template{
	Category: "general",
	Activities: []Type{
		{ID: "outreachSent", Label: "Outreach Sent (emails, messages)", Description: "Users who received communications"},
		{ID: "eventAttendees", Label: "Event Attendees", Description: "Users who attended events"},
		{ID: "learningAssigned", Label: "Learning Assigned", Description: "Users assigned learning resources"},
		{ID: "supportProvided", Label: "Support/Help Provided", Description: "Users who received direct help"},
	},
	AudienceSize: 1000,
	SampleCounts: map[string]float64{
		"outreachSent": 500, "eventAttendees": 120, "learningAssigned": 200, "supportProvided": 80,
	},
	Explanation: "Coverage = (Unique users reached through activities) / Total audience. Track all engagement touchpoints.",
}

// TemplateFor picks the activity template matching a recommendation's
// text, falling back to the generic template.
func TemplateFor(recommendation string) Template {
	lower := strings.ToLower(recommendation)
	for _, rule := range templateRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.template
			}
		}
	}
	return defaultTemplate
}
