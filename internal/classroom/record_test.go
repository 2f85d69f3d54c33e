package classroom

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	events := []Event{
		{Type: EventClassBegin, Time: 100, Begin: &BeginData{Title: "Math", AttendanceExpiration: 160}},
		{Type: EventAttendance, Time: 110, Attendance: &AttendanceData{
			Student: StudentRef{StudentID: "S001", Name: "Alice"}, Order: 1,
		}},
		{Type: EventRollCall, Time: 120, RollCall: &RollCallData{
			Students: []StudentRef{{StudentID: "S002", Name: "Bob"}},
			Question: "What is 2+2?",
		}},
		{Type: EventClassEnd, Time: 130},
	}

	raw, err := encodeRecord(events)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := decodeRecord(raw)
	if err != nil {
		t.Fatal(err)
	}
	again, err := encodeRecord(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != string(again) {
		t.Errorf("round trip changed encoding:\n%s\n%s", raw, again)
	}
	if decoded[2].RollCall.Question != "What is 2+2?" {
		t.Errorf("roll-call question lost: %+v", decoded[2])
	}
}

func TestRecordWireShape(t *testing.T) {
	raw, err := encodeRecord([]Event{
		{Type: EventClassBegin, Time: 100, Begin: &BeginData{Title: "Math", AttendanceExpiration: 160}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"type":"classbegin","time":100,"data":{"title":"Math","attendance_expiration":160}}]`
	if string(raw) != want {
		t.Errorf("wire shape:\ngot  %s\nwant %s", raw, want)
	}
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "{broken"},
		{"not a list", `{"type":"classbegin"}`},
		{"unknown type", `[{"type":"lunchbreak","time":1,"data":null}]`},
		{"bad data shape", `[{"type":"attendance","time":1,"data":"yes"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeRecord([]byte(tc.raw)); err == nil {
				t.Errorf("decode %s: expected error", tc.raw)
			}
		})
	}
}

func TestClassEndEncodesNullData(t *testing.T) {
	raw, err := json.Marshal(Event{Type: EventClassEnd, Time: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"data":null`) {
		t.Errorf("classend data should be null: %s", raw)
	}
}
