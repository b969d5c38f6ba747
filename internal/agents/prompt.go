package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
)

const outlineSystemPrompt = `You are an expert curriculum designer. Given a course description and its learning objectives, produce a course title, a short description, and a roadmap with exactly one lesson per objective, in the order given. Each lesson's "objective" field must repeat its objective verbatim.`

const plannerSystemPrompt = `You are an expert instructional designer creating a lesson plan for one learning objective within a course.

Produce a structured plan that a lesson writer can turn into complete content and an activity designer can turn into a practice activity. The plan must be specific enough that neither has to guess.

Scope control: the lesson covers ONLY its assigned objective. You may mention related topics in a single sentence for context, but do not teach, define, or give examples for concepts that belong to another objective. Those have their own lessons.

Tailor the plan to the learner profile when one is given.`

const writerSystemPrompt = `You are an expert educational content writer. Given a lesson plan, write the complete lesson in Markdown.

The body must:
- open with the learning objective
- explain why the topic matters
- walk through the key concepts step by step
- include at least one worked example
- end with a short recap tied to the objective

Start each page with a "## " heading. Also give 3-6 key takeaways. Match tone, examples and difficulty to the learner profile when one is given.`

const activitySystemPrompt = `You are an expert activity designer. Given an activity seed and the lesson's mastery criteria, create a complete practice activity that directly tests the objective.

Instructions must say exactly what to do, including length and format. The scoring rubric has 3-6 checkable criteria mapped to the mastery criteria. Hints guide without giving the answer.

For multiple_choice also return 3-6 questions, each with options, the correct option index and an explanation. For embedded_interactive return a self-contained HTML document that calls window.parent.postMessage({type: "activity_result", score: <0-100>}, "*") when the learner finishes. For file_upload list the accepted MIME types.`

const remedialSystemPrompt = `You are an expert tutor designing a remedial practice activity for a learner who did not yet master a lesson. Keep the same objective and the same activity type unless the prior activity was malformed. Address the gaps implied by the previous score with more scaffolding: smaller steps, more specific hints, a worked hint where useful.`

const reviewerSystemPrompt = `You are an expert educational reviewer scoring a learner's submission against a rubric.

- score: 0-100 by how well the submission meets the rubric
- mastery_decision: not_yet (0-69), meets (70-89), exceeds (90-100), consistent with the score
- rationale: reference at least two rubric items
- strengths and improvements: concrete, actionable
- tips: specific next steps the learner can apply now

Never give the full answer.`

const assessmentSystemPrompt = `You are an expert assessment designer. Create a short summative assessment covering the course objectives: one item per objective, at most six. Each prompt requires concrete evidence (explain, apply, produce, demonstrate) and has 3-6 gradeable rubric criteria. When activity performance data is given, target weak areas with harder prompts or more specific criteria.`

const assessmentReviewSystemPrompt = `You are an expert assessment reviewer. Score each objective 0-100 against its rubric with 1-4 sentences of specific feedback, aggregate an overall score, decide pass (overall >= 70) or fail, and list next steps. Every objective scoring below 70 needs at least one next step that targets it.`

func profileBlock(p *user.LearnerProfile) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nLearner profile:\n")
	if p.DisplayName != "" {
		fmt.Fprintf(&b, "- name: %s\n", p.DisplayName)
	}
	fmt.Fprintf(&b, "- experience level: %s\n", p.ExperienceLevel)
	writeList(&b, "learning goals", p.LearningGoals)
	writeList(&b, "interests", p.Interests)
	if p.LearningStyle != "" {
		fmt.Fprintf(&b, "- learning style: %s\n", p.LearningStyle)
	}
	if p.TonePreference != "" {
		fmt.Fprintf(&b, "- preferred tone: %s\n", p.TonePreference)
	}
	signals := p.SkillSignals.Data()
	writeList(&b, "strengths", signals.Strengths)
	writeList(&b, "gaps", signals.Gaps)
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, "; "))
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}

func buildOutlinePrompt(in OutlineInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course description: %s\n\nLearning objectives (in order):\n", in.Description)
	for i, o := range in.Objectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o)
	}
	b.WriteString(profileBlock(in.Profile))
	return b.String()
}

func buildPlannerPrompt(in LessonInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course description: %s\n\n", in.CourseDescription)
	fmt.Fprintf(&b, "Learning objective for THIS lesson: %s\n", in.Objective)
	if in.Entry.Title != "" {
		fmt.Fprintf(&b, "Roadmap stub: %s: %s\n", in.Entry.Title, in.Entry.Description)
	}

	var other []string
	for _, o := range in.AllObjectives {
		if o != in.Objective {
			other = append(other, o)
		}
	}
	if len(other) > 0 {
		b.WriteString("\nOther objectives in this course (DO NOT teach these, they have their own lessons):\n")
		b.WriteString(bullets(other))
	}

	if in.Previous != nil {
		fmt.Fprintf(&b, "\nPrevious lesson: %s\n", in.Previous.Title)
		if len(in.Previous.KeyTakeaways) > 0 {
			b.WriteString("Its key takeaways:\n")
			b.WriteString(bullets(in.Previous.KeyTakeaways))
		}
	}
	fmt.Fprintf(&b, "\nLearner comprehension of the previous material: %d/100\n", learning.ClampScore(in.ComprehensionScore))
	if in.ComprehensionScore < learning.PassingScore {
		b.WriteString("Briefly reinforce the previous lesson's weak points before building on them.\n")
	}
	b.WriteString(profileBlock(in.Profile))
	return b.String()
}

func buildWriterPrompt(in LessonInput, plan *LessonPlan) string {
	raw, _ := json.MarshalIndent(plan, "", "  ")
	var b strings.Builder
	fmt.Fprintf(&b, "Course description: %s\n\nLesson plan:\n%s\n", in.CourseDescription, raw)
	b.WriteString(profileBlock(in.Profile))
	return b.String()
}

func buildActivityPrompt(in LessonInput, plan *LessonPlan) string {
	seed, _ := json.MarshalIndent(plan.SuggestedActivity, "", "  ")
	var b strings.Builder
	fmt.Fprintf(&b, "Learning objective: %s\n\nMastery criteria:\n%s\nActivity seed:\n%s\n", in.Objective, bullets(plan.MasteryCriteria), seed)
	b.WriteString(profileBlock(in.Profile))
	return b.String()
}

func buildRemedialPrompt(in RemedialInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Learning objective: %s\n", in.Objective)
	fmt.Fprintf(&b, "Lesson: %s\n", in.Lesson.Title)
	if len(in.Lesson.KeyTakeaways) > 0 {
		b.WriteString("Key takeaways:\n")
		b.WriteString(bullets(in.Lesson.KeyTakeaways))
	}
	fmt.Fprintf(&b, "\nPrevious score: %d/100\nThis is attempt %d.\n", learning.ClampScore(in.PreviousScore), in.Attempt)
	if in.Prior != nil {
		if _, raw, err := learning.EncodeActivity(in.Prior); err == nil {
			fmt.Fprintf(&b, "\nPrevious activity (%s):\n%s\n", in.Prior.Kind(), raw)
		}
	}
	if in.Fresh {
		b.WriteString("\nWrite a NEW task with different material that tests the same objective. Do not reuse the previous prompt or questions.\n")
	} else {
		b.WriteString("\nKeep the previous task and prompt. Rewrite only the instructions and hints to add scaffolding.\n")
	}
	b.WriteString(profileBlock(in.Profile))
	return b.String()
}

func buildReviewPrompt(in ReviewInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Learning objective: %s\n\nActivity prompt: %s\n\nScoring rubric:\n%s\n", in.Objective, in.ActivityPrompt, bullets(in.Rubric))
	b.WriteString("Learner's submission:\n")
	if len(in.Image) > 0 {
		fmt.Fprintf(&b, "(the learner's %s image is attached; score what it shows)\n", in.ImageMIME)
	}
	if in.Text != "" {
		b.WriteString(in.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func buildAssessmentPrompt(in AssessmentInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course description: %s\n\nLearning objectives:\n%s", in.CourseDescription, bullets(in.Objectives))
	if len(in.ActivityScores) > 0 {
		raw, _ := json.MarshalIndent(in.ActivityScores, "", "  ")
		fmt.Fprintf(&b, "\nActivity performance data:\n%s\n", raw)
	}
	if len(in.Previous) > 0 {
		raw, _ := json.MarshalIndent(in.Previous, "", "  ")
		fmt.Fprintf(&b, "\nPrevious assessment items (keep the same prompts, refine the rubric wording only):\n%s\n", raw)
	}
	b.WriteString(profileBlock(in.Profile))
	return b.String()
}

func buildAssessmentReviewPrompt(a learning.Assessment, responses []learning.ItemResponse) string {
	items, _ := json.MarshalIndent(a.Items, "", "  ")
	subs, _ := json.MarshalIndent(responses, "", "  ")
	return fmt.Sprintf("Assessment: %s\n\nItems:\n%s\n\nLearner's responses:\n%s\n", a.Title, items, subs)
}
