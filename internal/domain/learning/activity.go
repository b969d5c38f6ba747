package learning

import (
	"encoding/json"
	"fmt"
)

type ActivityKind string

const (
	KindMultipleChoice      ActivityKind = "multiple_choice"
	KindShortResponse       ActivityKind = "short_response"
	KindDrawing             ActivityKind = "drawing"
	KindEmbeddedInteractive ActivityKind = "embedded_interactive"
	KindFileUpload          ActivityKind = "file_upload"
)

// Activity is the closed set of practice widgets a lesson can end with.
// Only the variants in this file implement it.
type Activity interface {
	Kind() ActivityKind
	Passing() int
	sealedActivity()
}

type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type MultipleChoice struct {
	Instructions string     `json:"instructions"`
	Questions    []Question `json:"questions"`
	PassingScore int        `json:"passing_score"`
}

type ShortResponse struct {
	Instructions string   `json:"instructions"`
	Prompt       string   `json:"prompt"`
	Rubric       []string `json:"rubric"`
	Hints        []string `json:"hints,omitempty"`
	PassingScore int      `json:"passing_score"`
}

type Drawing struct {
	Instructions string   `json:"instructions"`
	Prompt       string   `json:"prompt"`
	Rubric       []string `json:"rubric"`
	CanvasWidth  int      `json:"canvas_width"`
	CanvasHeight int      `json:"canvas_height"`
	PassingScore int      `json:"passing_score"`
}

// EmbeddedInteractive is a self-contained HTML document rendered in a
// sandboxed frame; it reports the learner's result back as a message.
type EmbeddedInteractive struct {
	Instructions string   `json:"instructions"`
	HTML         string   `json:"html"`
	Rubric       []string `json:"rubric"`
	PassingScore int      `json:"passing_score"`
}

type FileUpload struct {
	Instructions  string   `json:"instructions"`
	Prompt        string   `json:"prompt"`
	AcceptedTypes []string `json:"accepted_types"`
	Rubric        []string `json:"rubric"`
	PassingScore  int      `json:"passing_score"`
}

// Unsupported keeps an activity whose kind this build does not know so it
// can still be stored and shown as a placeholder.
type Unsupported struct {
	RawKind string          `json:"kind"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

func (MultipleChoice) Kind() ActivityKind      { return KindMultipleChoice }
func (ShortResponse) Kind() ActivityKind       { return KindShortResponse }
func (Drawing) Kind() ActivityKind             { return KindDrawing }
func (EmbeddedInteractive) Kind() ActivityKind { return KindEmbeddedInteractive }
func (FileUpload) Kind() ActivityKind          { return KindFileUpload }
func (u Unsupported) Kind() ActivityKind       { return ActivityKind(u.RawKind) }

func (a MultipleChoice) Passing() int      { return passingOrDefault(a.PassingScore) }
func (a ShortResponse) Passing() int       { return passingOrDefault(a.PassingScore) }
func (a Drawing) Passing() int             { return passingOrDefault(a.PassingScore) }
func (a EmbeddedInteractive) Passing() int { return passingOrDefault(a.PassingScore) }
func (a FileUpload) Passing() int          { return passingOrDefault(a.PassingScore) }
func (Unsupported) Passing() int           { return PassingScore }

func (MultipleChoice) sealedActivity()      {}
func (ShortResponse) sealedActivity()       {}
func (Drawing) sealedActivity()             {}
func (EmbeddedInteractive) sealedActivity() {}
func (FileUpload) sealedActivity()          {}
func (Unsupported) sealedActivity()         {}

func passingOrDefault(v int) int {
	if v <= 0 || v > 100 {
		return PassingScore
	}
	return v
}

// DecodeActivity turns a stored (kind, config) pair into its variant. An
// unknown kind is not an error: it decodes to Unsupported.
func DecodeActivity(kind ActivityKind, raw json.RawMessage) (Activity, error) {
	var (
		out Activity
		err error
	)
	switch kind {
	case KindMultipleChoice:
		var a MultipleChoice
		err = json.Unmarshal(raw, &a)
		out = a
	case KindShortResponse:
		var a ShortResponse
		err = json.Unmarshal(raw, &a)
		out = a
	case KindDrawing:
		var a Drawing
		err = json.Unmarshal(raw, &a)
		out = a
	case KindEmbeddedInteractive:
		var a EmbeddedInteractive
		err = json.Unmarshal(raw, &a)
		out = a
	case KindFileUpload:
		var a FileUpload
		err = json.Unmarshal(raw, &a)
		out = a
	default:
		return Unsupported{RawKind: string(kind), Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s activity: %w", kind, err)
	}
	return out, nil
}

// EncodeActivity is the inverse of DecodeActivity.
func EncodeActivity(a Activity) (ActivityKind, []byte, error) {
	if a == nil {
		return "", nil, fmt.Errorf("nil activity")
	}
	if u, ok := a.(Unsupported); ok {
		return ActivityKind(u.RawKind), u.Raw, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s activity: %w", a.Kind(), err)
	}
	return a.Kind(), raw, nil
}
