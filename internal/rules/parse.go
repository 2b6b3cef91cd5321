package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// Target string grammar, as authored in the tracking CSV's Target column:
//
//	range:     "10 - 20 %"        NUMBER - NUMBER UNIT?
//	threshold: "< 50 %"           OPERATOR NUMBER UNIT?
//	label:     "Steady growth"    anything else
//	none:      ""                 empty
//
// Unicode ≤ and ≥ are normalized to <= and >=.
var (
	rangePattern     = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)\s*(.*)$`)
	thresholdPattern = regexp.MustCompile(`^([<>≤≥!=]+)\s*(\d+(?:\.\d+)?)\s*(.*)$`)
)

// ParseTarget parses an authored target string into the structured target
// fields of a Rule. It never fails: unrecognized text becomes a label
// target, and the empty string a none target.
func ParseTarget(target string) model.Rule {
	s := strings.TrimSpace(target)
	if s == "" {
		return model.Rule{TargetType: model.TargetNone}
	}

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return model.Rule{
			TargetType: model.TargetRange,
			TargetMin:  &lo,
			TargetMax:  &hi,
			TargetUnit: strings.TrimSpace(m[3]),
		}
	}

	if m := thresholdPattern.FindStringSubmatch(s); m != nil {
		op := normalizeOperator(m[1])
		v, _ := strconv.ParseFloat(m[2], 64)
		return model.Rule{
			TargetType:     model.TargetThreshold,
			TargetValue:    &v,
			TargetOperator: op,
			TargetUnit:     strings.TrimSpace(m[3]),
		}
	}

	return model.Rule{
		TargetType:  model.TargetLabel,
		TargetLabel: s,
	}
}

func normalizeOperator(op string) string {
	switch op {
	case "≤":
		return model.OpLTE
	case "≥":
		return model.OpGTE
	default:
		return op
	}
}
