package agents

import "github.com/yungbote/school-backend/internal/platform/llm"

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strMin(desc string, min int) map[string]any {
	return map[string]any{"type": "string", "description": desc, "minLength": min}
}

func strList(desc string, min, max int) map[string]any {
	s := map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string", "minLength": 1},
		"description": desc,
		"minItems":    min,
	}
	if max > 0 {
		s["maxItems"] = max
	}
	return s
}

func score(desc string) map[string]any {
	return map[string]any{"type": "integer", "minimum": 0, "maximum": 100, "description": desc}
}

var activityKinds = []any{"multiple_choice", "short_response", "drawing", "embedded_interactive", "file_upload"}

// CourseOutlineSchema is the course skeleton: one roadmap entry per objective.
var CourseOutlineSchema = &llm.Schema{
	Name:        "course-outline",
	Description: "Course title, description and a roadmap with one lesson stub per learning objective",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       str("Course title (3-10 words)"),
			"description": strMin("Two to four sentence course description", 20),
			"lessons": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       str("Lesson title, specific to the objective"),
						"description": str("One sentence on what the lesson covers"),
						"objective":   str("The learning objective this lesson teaches, verbatim"),
					},
					"required":             []any{"title", "description", "objective"},
					"additionalProperties": false,
				},
			},
			"reasoning": str("Brief note on how the roadmap was ordered"),
		},
		"required":             []any{"title", "description", "lessons"},
		"additionalProperties": false,
	},
}

var LessonPlanSchema = &llm.Schema{
	Name:        "lesson-plan",
	Description: "Structured plan for one lesson covering a single learning objective",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lesson_title":       str("Clear, specific lesson title (not the course title)"),
			"learning_objective": str("The objective restated as a measurable outcome"),
			"key_concepts":       strList("Core concepts the lesson must cover", 2, 8),
			"lesson_outline":     strList("Ordered sections of the lesson", 3, 10),
			"suggested_activity": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"activity_type":     map[string]any{"type": "string", "enum": activityKinds},
					"prompt":            str("Seed prompt for the practice activity"),
					"expected_evidence": strList("What a correct submission shows", 2, 5),
				},
				"required":             []any{"activity_type", "prompt", "expected_evidence"},
				"additionalProperties": false,
			},
			"mastery_criteria": strList("Rubric-style checks for mastery", 2, 6),
			"reasoning":        str("Brief note on how the plan fits the learner"),
		},
		"required":             []any{"lesson_title", "learning_objective", "key_concepts", "lesson_outline", "suggested_activity", "mastery_criteria"},
		"additionalProperties": false,
	},
}

var LessonContentSchema = &llm.Schema{
	Name:        "lesson-content",
	Description: "Complete lesson written in Markdown plus key takeaways",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lesson_title":  str("Lesson title"),
			"lesson_body":   strMin("Full lesson in Markdown; each ## heading starts a new page", 200),
			"key_takeaways": strList("Concise key takeaways", 3, 6),
		},
		"required":             []any{"lesson_title", "lesson_body", "key_takeaways"},
		"additionalProperties": false,
	},
}

var ActivitySpecSchema = &llm.Schema{
	Name:        "activity-spec",
	Description: "A complete practice activity for one lesson",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"activity_type":  map[string]any{"type": "string", "enum": activityKinds},
			"instructions":   strMin("Actionable instructions including constraints", 50),
			"prompt":         strMin("The specific question or task", 20),
			"scoring_rubric": strList("Specific, gradeable criteria", 3, 6),
			"hints":          strList("Scaffolding hints that do not give the answer", 2, 5),
			"questions": map[string]any{
				"type":        "array",
				"description": "Only for multiple_choice: the questions",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt":        str("Question text"),
						"options":       strList("Answer options", 2, 6),
						"correct_index": map[string]any{"type": "integer", "minimum": 0},
						"explanation":   str("Why the correct option is right"),
					},
					"required":             []any{"prompt", "options", "correct_index", "explanation"},
					"additionalProperties": false,
				},
			},
			"html":           str("Only for embedded_interactive: a self-contained HTML document that posts {score} to its parent"),
			"accepted_types": strList("Only for file_upload: accepted MIME types", 0, 0),
			"passing_score":  score("Minimum score that counts as passing"),
			"reasoning":      str("Brief note on how the activity tests the objective"),
		},
		"required":             []any{"activity_type", "instructions", "prompt", "scoring_rubric", "hints"},
		"additionalProperties": false,
	},
}

var ActivityReviewSchema = &llm.Schema{
	Name:        "activity-review",
	Description: "Rubric-based review of a learner's activity submission",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":            score("0-100 against the rubric"),
			"mastery_decision": map[string]any{"type": "string", "enum": []any{"not_yet", "meets", "exceeds"}},
			"rationale":        strMin("Reasoning referencing at least two rubric items", 50),
			"strengths":        strList("What the learner did well", 2, 5),
			"improvements":     strList("Gaps phrased as actionable targets", 2, 5),
			"tips":             strList("Next-step instructions", 2, 6),
		},
		"required":             []any{"score", "mastery_decision", "rationale", "strengths", "improvements", "tips"},
		"additionalProperties": false,
	},
}

var AssessmentSpecSchema = &llm.Schema{
	Name:        "assessment-spec",
	Description: "Summative assessment with one item per objective",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"assessment_title": str("Assessment title"),
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 6,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"objective": str("Objective being assessed"),
						"prompt":    strMin("Prompt requiring concrete evidence of mastery", 20),
						"rubric":    strList("Gradeable criteria", 3, 6),
					},
					"required":             []any{"objective", "prompt", "rubric"},
					"additionalProperties": false,
				},
			},
			"reasoning": str("Brief note on which weak areas were targeted"),
		},
		"required":             []any{"assessment_title", "items"},
		"additionalProperties": false,
	},
}

var AssessmentReviewSchema = &llm.Schema{
	Name:        "assessment-review",
	Description: "Per-objective review of an assessment submission",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overall_score": score("Aggregated from the objective scores"),
			"objective_scores": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"objective": str("Objective"),
						"score":     score("0-100 for this objective"),
						"feedback":  str("1-4 sentences referencing the rubric"),
					},
					"required":             []any{"objective", "score", "feedback"},
					"additionalProperties": false,
				},
			},
			"pass_decision": map[string]any{"type": "string", "enum": []any{"pass", "fail"}},
			"next_steps":    strList("Actionable next steps", 1, 0),
		},
		"required":             []any{"overall_score", "objective_scores", "pass_decision", "next_steps"},
		"additionalProperties": false,
	},
}
