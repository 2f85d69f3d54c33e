// Package classroom implements the live-classroom session engine: an
// ephemeral append-only event log per lesson kept in Redis, with a
// rotating-secret QR attendance protocol on top. A session is open iff its
// record key exists; closing appends a terminal classend event and the caller
// archives the final log into Postgres before deleting the key group.
package classroom

import (
	"encoding/json"
	"fmt"
)

// EventType tags the four event kinds in a session record.
type EventType string

const (
	EventClassBegin EventType = "classbegin"
	EventAttendance EventType = "attendance"
	EventRollCall   EventType = "taketheroll"
	EventClassEnd   EventType = "classend"
)

// BeginData is the payload of the classbegin event, always first in a record.
type BeginData struct {
	Title                string `json:"title"`
	AttendanceExpiration int64  `json:"attendance_expiration"`
}

// StudentRef identifies a student inside attendance and roll-call payloads.
type StudentRef struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// AttendanceData is the payload of an attendance event. Order is the 1-based
// position among attendance events only, assigned at append time.
type AttendanceData struct {
	Student StudentRef `json:"student"`
	Order   int        `json:"order"`
}

// RollCallData is the payload of a taketheroll event: the snapshot of called
// students and the prompt question. It records the prompt, not responses.
type RollCallData struct {
	Students []StudentRef `json:"students"`
	Question string       `json:"question"`
}

// Event is one immutable entry in a session record. Exactly one payload field
// is set, matching Type; classend carries none.
type Event struct {
	Type       EventType
	Time       int64
	Begin      *BeginData
	Attendance *AttendanceData
	RollCall   *RollCallData
}

// wireEvent is the stored JSON shape: {"type": ..., "time": ..., "data": {...}}.
type wireEvent struct {
	Type EventType       `json:"type"`
	Time int64           `json:"time"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the event in the stored wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch e.Type {
	case EventClassBegin:
		data = e.Begin
	case EventAttendance:
		data = e.Attendance
	case EventRollCall:
		data = e.RollCall
	case EventClassEnd:
		data = nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Type: e.Type, Time: e.Time, Data: raw})
}

// UnmarshalJSON decodes an event, rejecting unknown types and malformed payloads.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.Type = w.Type
	e.Time = w.Time
	e.Begin, e.Attendance, e.RollCall = nil, nil, nil
	switch w.Type {
	case EventClassBegin:
		e.Begin = &BeginData{}
		return json.Unmarshal(w.Data, e.Begin)
	case EventAttendance:
		e.Attendance = &AttendanceData{}
		return json.Unmarshal(w.Data, e.Attendance)
	case EventRollCall:
		e.RollCall = &RollCallData{}
		return json.Unmarshal(w.Data, e.RollCall)
	case EventClassEnd:
		return nil
	default:
		return fmt.Errorf("unknown event type %q", w.Type)
	}
}

// encodeRecord serializes the full event sequence for storage.
func encodeRecord(events []Event) ([]byte, error) {
	return json.Marshal(events)
}

// decodeRecord parses stored bytes back into the event sequence. Any failure
// means the record is corrupt.
func decodeRecord(b []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(b, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// attendanceOf returns the attendance event for studentID, or nil.
func attendanceOf(events []Event, studentID string) *Event {
	for i := range events {
		if events[i].Type == EventAttendance && events[i].Attendance.Student.StudentID == studentID {
			return &events[i]
		}
	}
	return nil
}

// countAttendance returns the number of attendance events in the record.
func countAttendance(events []Event) int {
	n := 0
	for i := range events {
		if events[i].Type == EventAttendance {
			n++
		}
	}
	return n
}
