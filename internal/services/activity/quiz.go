package activity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/school-backend/internal/domain/learning"
)

var (
	ErrMalformedActivity = errors.New("activity is malformed")
	ErrWrongPhase        = errors.New("quiz action not allowed now")
	ErrNoSelection       = errors.New("no option selected")
	ErrInvalidOption     = errors.New("option out of range")
)

type Phase string

const (
	PhaseSelecting Phase = "selecting"
	PhaseRevealed  Phase = "revealed"
	PhaseDone      Phase = "done"
)

// Reveal is what the learner sees after submitting one answer.
type Reveal struct {
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correct_index"`
	Explanation  string `json:"explanation"`
}

// Miss is one wrongly answered question.
type Miss struct {
	Question    int    `json:"question"`
	Prompt      string `json:"prompt"`
	Explanation string `json:"explanation"`
}

type QuizResult struct {
	Score    int    `json:"score"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Missed   []Miss `json:"missed"`
	Feedback string `json:"feedback"`
}

func validateChoice(mc learning.MultipleChoice) error {
	if len(mc.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrMalformedActivity)
	}
	for i, q := range mc.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrMalformedActivity, i+1, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer out of range", ErrMalformedActivity, i+1)
		}
	}
	return nil
}

// Quiz walks a multiple-choice activity one question at a time:
// select, submit, reveal, advance. It is not safe for concurrent use.
type Quiz struct {
	questions []learning.Question
	current   int
	selected  int
	phase     Phase
	correct   []bool
}

func NewQuiz(mc learning.MultipleChoice) (*Quiz, error) {
	if err := validateChoice(mc); err != nil {
		return nil, err
	}
	return &Quiz{
		questions: mc.Questions,
		selected:  -1,
		phase:     PhaseSelecting,
		correct:   make([]bool, 0, len(mc.Questions)),
	}, nil
}

func (q *Quiz) Phase() Phase  { return q.phase }
func (q *Quiz) Current() int  { return q.current }
func (q *Quiz) Total() int    { return len(q.questions) }
func (q *Quiz) Selected() int { return q.selected }

// Select chooses an option for the current question. It may be changed
// until Submit.
func (q *Quiz) Select(option int) error {
	if q.phase != PhaseSelecting {
		return ErrWrongPhase
	}
	if option < 0 || option >= len(q.questions[q.current].Options) {
		return ErrInvalidOption
	}
	q.selected = option
	return nil
}

func (q *Quiz) Submit() (Reveal, error) {
	if q.phase != PhaseSelecting {
		return Reveal{}, ErrWrongPhase
	}
	if q.selected < 0 {
		return Reveal{}, ErrNoSelection
	}
	cur := q.questions[q.current]
	ok := q.selected == cur.CorrectIndex
	q.correct = append(q.correct, ok)
	q.phase = PhaseRevealed
	return Reveal{Correct: ok, CorrectIndex: cur.CorrectIndex, Explanation: cur.Explanation}, nil
}

// Advance moves to the next question, or finishes after the last one.
func (q *Quiz) Advance() error {
	if q.phase != PhaseRevealed {
		return ErrWrongPhase
	}
	q.selected = -1
	if q.current+1 >= len(q.questions) {
		q.phase = PhaseDone
		return nil
	}
	q.current++
	q.phase = PhaseSelecting
	return nil
}

// Result scores a finished quiz: round(correct/total*100), with feedback
// naming the explanation of every missed question.
func (q *Quiz) Result() (QuizResult, error) {
	if q.phase != PhaseDone {
		return QuizResult{}, ErrWrongPhase
	}
	out := QuizResult{Total: len(q.questions), Missed: []Miss{}}
	for i, ok := range q.correct {
		if ok {
			out.Correct++
			continue
		}
		out.Missed = append(out.Missed, Miss{
			Question:    i,
			Prompt:      q.questions[i].Prompt,
			Explanation: q.questions[i].Explanation,
		})
	}
	out.Score = int(math.Round(float64(out.Correct) / float64(out.Total) * 100))
	out.Feedback = quizFeedback(out)
	return out, nil
}

func quizFeedback(r QuizResult) string {
	if len(r.Missed) == 0 {
		return fmt.Sprintf("All %d answers correct.", r.Total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d correct. Review:\n", r.Correct, r.Total)
	for _, m := range r.Missed {
		fmt.Fprintf(&b, "- %s\n", m.Explanation)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ScoreAnswers runs answers through a Quiz in order.
func ScoreAnswers(mc learning.MultipleChoice, answers []int) (QuizResult, error) {
	q, err := NewQuiz(mc)
	if err != nil {
		return QuizResult{}, err
	}
	if len(answers) != q.Total() {
		return QuizResult{}, fmt.Errorf("%w: want %d answers, got %d", ErrEmptySubmission, q.Total(), len(answers))
	}
	for _, a := range answers {
		if err := q.Select(a); err != nil {
			return QuizResult{}, err
		}
		if _, err := q.Submit(); err != nil {
			return QuizResult{}, err
		}
		if err := q.Advance(); err != nil {
			return QuizResult{}, err
		}
	}
	return q.Result()
}
