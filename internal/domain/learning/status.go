package learning

type CourseStatus string

const (
	StatusDraft                CourseStatus = "draft"
	StatusGenerating           CourseStatus = "generating"
	StatusActive               CourseStatus = "active"
	StatusInProgress           CourseStatus = "in_progress"
	StatusAwaitingAssessment   CourseStatus = "awaiting_assessment"
	StatusGeneratingAssessment CourseStatus = "generating_assessment"
	StatusAssessmentReady      CourseStatus = "assessment_ready"
	StatusCompleted            CourseStatus = "completed"
	StatusGenerationFailed     CourseStatus = "generation_failed"
)

var allStatuses = []CourseStatus{
	StatusDraft,
	StatusGenerating,
	StatusActive,
	StatusInProgress,
	StatusAwaitingAssessment,
	StatusGeneratingAssessment,
	StatusAssessmentReady,
	StatusCompleted,
	StatusGenerationFailed,
}

func (s CourseStatus) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further generation can happen for the course
// without an explicit retry.
func (s CourseStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusGenerationFailed
}

const (
	SourceCustom     = "custom"
	SourcePredefined = "predefined"
)

// Mastery thresholds for activity reviews.
const (
	MasteryNotYet  = "not_yet"
	MasteryMeets   = "meets"
	MasteryExceeds = "exceeds"

	PassingScore = 70
)

// MasteryFor maps a 0-100 score to its mastery band.
func MasteryFor(score int) string {
	switch {
	case score >= 90:
		return MasteryExceeds
	case score >= PassingScore:
		return MasteryMeets
	default:
		return MasteryNotYet
	}
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
