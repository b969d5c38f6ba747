package activity

import (
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/school-backend/internal/domain/learning"
)

func choice(k int) learning.MultipleChoice {
	mc := learning.MultipleChoice{Instructions: "Pick one"}
	for i := 0; i < k; i++ {
		mc.Questions = append(mc.Questions, learning.Question{
			Prompt:       "question",
			Options:      []string{"a", "b", "c"},
			CorrectIndex: i % 3,
			Explanation:  "because " + string(rune('A'+i)),
		})
	}
	return mc
}

func TestQuizAllCorrectScoresHundred(t *testing.T) {
	for _, k := range []int{1, 3, 7} {
		mc := choice(k)
		answers := make([]int, k)
		for i, q := range mc.Questions {
			answers[i] = q.CorrectIndex
		}
		res, err := ScoreAnswers(mc, answers)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if res.Score != 100 || len(res.Missed) != 0 {
			t.Fatalf("k=%d: score=%d missed=%d", k, res.Score, len(res.Missed))
		}
	}
}

func TestQuizMissedQuestions(t *testing.T) {
	cases := []struct {
		k, j int
		want int
	}{
		{3, 1, 67},
		{3, 2, 33},
		{6, 1, 83},
		{7, 7, 0},
		{8, 3, 63},
	}
	for _, tc := range cases {
		mc := choice(tc.k)
		answers := make([]int, tc.k)
		for i, q := range mc.Questions {
			answers[i] = q.CorrectIndex
			if i < tc.j {
				answers[i] = (q.CorrectIndex + 1) % 3
			}
		}
		res, err := ScoreAnswers(mc, answers)
		if err != nil {
			t.Fatalf("k=%d j=%d: %v", tc.k, tc.j, err)
		}
		if res.Score != tc.want {
			t.Fatalf("k=%d j=%d: score=%d want %d", tc.k, tc.j, res.Score, tc.want)
		}
		if len(res.Missed) != tc.j {
			t.Fatalf("k=%d j=%d: missed=%d", tc.k, tc.j, len(res.Missed))
		}
		for i, q := range mc.Questions {
			listed := strings.Contains(res.Feedback, "- "+q.Explanation+"\n") || strings.HasSuffix(res.Feedback, "- "+q.Explanation)
			if i < tc.j && !listed {
				t.Fatalf("feedback misses %q:\n%s", q.Explanation, res.Feedback)
			}
			if i >= tc.j && listed {
				t.Fatalf("feedback lists correct answer %q:\n%s", q.Explanation, res.Feedback)
			}
		}
	}
}

func TestQuizPhases(t *testing.T) {
	q, err := NewQuiz(choice(2))
	if err != nil {
		t.Fatalf("NewQuiz: %v", err)
	}
	if _, err := q.Submit(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("submit without selection: %v", err)
	}
	if err := q.Advance(); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("advance before reveal: %v", err)
	}
	if err := q.Select(5); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("select out of range: %v", err)
	}
	_ = q.Select(2)
	_ = q.Select(0)
	r, err := q.Submit()
	if err != nil || !r.Correct || r.Explanation != "because A" {
		t.Fatalf("reveal = %+v, %v", r, err)
	}
	if err := q.Select(1); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("select after reveal: %v", err)
	}
	if _, err := q.Result(); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("result before done: %v", err)
	}
	_ = q.Advance()
	if q.Current() != 1 || q.Phase() != PhaseSelecting || q.Selected() != -1 {
		t.Fatalf("advance did not reset: current=%d phase=%s", q.Current(), q.Phase())
	}
	_ = q.Select(0)
	if r, _ := q.Submit(); r.Correct || r.CorrectIndex != 1 {
		t.Fatalf("second reveal = %+v", r)
	}
	_ = q.Advance()
	res, err := q.Result()
	if err != nil || res.Score != 50 || res.Correct != 1 {
		t.Fatalf("result = %+v, %v", res, err)
	}
}

func TestQuizRejectsMalformed(t *testing.T) {
	if _, err := NewQuiz(learning.MultipleChoice{}); !errors.Is(err, ErrMalformedActivity) {
		t.Fatalf("no questions: %v", err)
	}
	bad := choice(1)
	bad.Questions[0].CorrectIndex = 9
	if _, err := NewQuiz(bad); !errors.Is(err, ErrMalformedActivity) {
		t.Fatalf("answer out of range: %v", err)
	}
	if _, err := ScoreAnswers(choice(3), []int{0}); !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("short answer list: %v", err)
	}
}
