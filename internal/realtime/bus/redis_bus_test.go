package bus

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/school-backend/internal/realtime"
)

func TestDecodeMessageKeepsRawData(t *testing.T) {
	in := realtime.SSEMessage{
		Channel: "course:abc",
		Event:   realtime.SSEEventLessonPlanned,
		Data:    realtime.GenerationEvent{ObjectiveIndex: 2, PlanTitle: "Loops"},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := decodeMessage(string(raw))
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if out.Channel != in.Channel || out.Event != in.Event {
		t.Fatalf("envelope mismatch: %+v", out)
	}
	again, _ := json.Marshal(out)
	if string(again) != string(raw) {
		t.Fatalf("re-encoded payload differs:\nwant %s\ngot  %s", raw, again)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := decodeMessage("{not json"); err == nil {
		t.Fatalf("expected error")
	}
}
