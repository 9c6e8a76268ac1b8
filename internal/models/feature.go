package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Feature identifies one of the advisory features a conversation belongs to.
type Feature int

const (
	FeatureCareerPaths Feature = iota + 1
	FeatureResumeFeedback
	FeatureMarketInsights
	FeatureCollegeAdvice
	FeatureInterviewTips
)

// Features lists every feature in display order.
var Features = []Feature{
	FeatureCareerPaths,
	FeatureResumeFeedback,
	FeatureMarketInsights,
	FeatureCollegeAdvice,
	FeatureInterviewTips,
}

// ParseFeature accepts the decimal id used on the wire ("1".."5").
func ParseFeature(raw string) (Feature, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid feature id %q", raw)
	}
	f := Feature(n)
	if !f.Valid() {
		return 0, fmt.Errorf("unknown feature id %d", n)
	}
	return f, nil
}

func (f Feature) Valid() bool {
	return f >= FeatureCareerPaths && f <= FeatureInterviewTips
}

func (f Feature) String() string {
	return strconv.Itoa(int(f))
}

// Name is the human readable feature title.
func (f Feature) Name() string {
	switch f {
	case FeatureCareerPaths:
		return "Career path suggestions"
	case FeatureResumeFeedback:
		return "Resume/CV feedback"
	case FeatureMarketInsights:
		return "Job market insights"
	case FeatureCollegeAdvice:
		return "College/major advice"
	case FeatureInterviewTips:
		return "Interview preparation tips"
	default:
		return "Unknown feature"
	}
}
