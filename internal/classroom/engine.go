package classroom

import (
	"context"
	"crypto/rand"
	"strconv"
	"time"
)

const (
	// DefaultTokenWindow is how long an issued attendance token stays valid.
	DefaultTokenWindow = 20 * time.Second

	secretLength   = 8
	secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Engine orchestrates classroom session records: open/close, event appends,
// and the attendance token protocol. All state lives in the injected Store;
// appends are read-modify-write full overwrites, so concurrent writers to the
// same lesson can lose updates. Durable archival on close is the caller's job:
// archive the returned events, then Delete the group.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates an engine over the given session store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Open creates a fresh session record for the lesson: a single classbegin
// event, a new random attendance secret, and the attendance window expiration.
// Fails with ErrAlreadyOpen if a record already exists.
func (e *Engine) Open(ctx context.Context, lessonID int64, title string, windowSeconds int) error {
	_, ok, err := e.store.Get(ctx, recordKey(lessonID))
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyOpen
	}

	now := e.now().Unix()
	expiresAt := now + int64(windowSeconds)
	record := []Event{{
		Type: EventClassBegin,
		Time: now,
		Begin: &BeginData{
			Title:                title,
			AttendanceExpiration: expiresAt,
		},
	}}
	raw, err := encodeRecord(record)
	if err != nil {
		return err
	}

	if err := e.store.Set(ctx, recordKey(lessonID), raw); err != nil {
		return err
	}
	if err := e.store.Set(ctx, secretKey(lessonID), []byte(randomSecret())); err != nil {
		return err
	}
	return e.store.Set(ctx, expirationKey(lessonID), []byte(strconv.FormatInt(expiresAt, 10)))
}

// Record returns the current event sequence. ErrNotOpen when no record exists;
// ErrRecordCorrupt (after self-heal deletion) when stored bytes do not parse.
func (e *Engine) Record(ctx context.Context, lessonID int64) ([]Event, error) {
	return e.readRecord(ctx, lessonID)
}

// Close appends the terminal classend event and returns the full final
// sequence. The caller must archive it durably and then call Delete; on
// archival failure the group is left intact so close can be retried.
func (e *Engine) Close(ctx context.Context, lessonID int64) ([]Event, error) {
	events, err := e.readRecord(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	events = append(events, Event{Type: EventClassEnd, Time: e.now().Unix()})
	if err := e.writeRecord(ctx, lessonID, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Delete removes the record, secret and expiration keys together, returning
// the lesson to the "not open" state.
func (e *Engine) Delete(ctx context.Context, lessonID int64) error {
	return e.store.Del(ctx, recordKey(lessonID), secretKey(lessonID), expirationKey(lessonID))
}

// RecordAttendance appends an attendance event for the student. A duplicate
// submission is a silent no-op: first submission wins and keeps its order.
func (e *Engine) RecordAttendance(ctx context.Context, lessonID int64, studentID, studentName string) error {
	events, err := e.readRecord(ctx, lessonID)
	if err != nil {
		return err
	}
	if attendanceOf(events, studentID) != nil {
		return nil
	}
	events = append(events, Event{
		Type: EventAttendance,
		Time: e.now().Unix(),
		Attendance: &AttendanceData{
			Student: StudentRef{StudentID: studentID, Name: studentName},
			Order:   countAttendance(events) + 1,
		},
	})
	return e.writeRecord(ctx, lessonID, events)
}

// RecordRollCall appends a roll-call prompt snapshot. Repeated roll-calls
// append further events; there is no dedup.
func (e *Engine) RecordRollCall(ctx context.Context, lessonID int64, students []StudentRef, question string) error {
	events, err := e.readRecord(ctx, lessonID)
	if err != nil {
		return err
	}
	events = append(events, Event{
		Type: EventRollCall,
		Time: e.now().Unix(),
		RollCall: &RollCallData{
			Students: students,
			Question: question,
		},
	})
	return e.writeRecord(ctx, lessonID, events)
}

// IssueAttendanceToken signs a short-lived token against the session's current
// attendance secret. If the attendance window has already elapsed it returns
// an empty token and no error: attendance is closed, not failed. ErrNotOpen
// when no secret is stored; an unparseable expiration deletes the key group
// and returns ErrRecordCorrupt, same as a corrupt record.
func (e *Engine) IssueAttendanceToken(ctx context.Context, lessonID int64, window time.Duration) (string, error) {
	secret, ok, err := e.store.Get(ctx, secretKey(lessonID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotOpen
	}
	rawExp, ok, err := e.store.Get(ctx, expirationKey(lessonID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotOpen
	}
	expiresAt, err := strconv.ParseInt(string(rawExp), 10, 64)
	if err != nil {
		if delErr := e.Delete(ctx, lessonID); delErr != nil {
			return "", delErr
		}
		return "", ErrRecordCorrupt
	}
	if expiresAt < e.now().Unix() {
		return "", nil
	}
	return signAttendanceToken(secret, e.now(), window)
}

// VerifyAttendanceToken validates a submitted token against the current
// secret. ErrNotOpen when no secret is stored; ErrInvalidToken on signature
// or expiration failure.
func (e *Engine) VerifyAttendanceToken(ctx context.Context, lessonID int64, token string) error {
	secret, ok, err := e.store.Get(ctx, secretKey(lessonID))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOpen
	}
	return verifyAttendanceToken(secret, token)
}

// readRecord loads and decodes the record. On decode failure it deletes the
// whole key group before returning ErrRecordCorrupt, so a retried read
// observes ErrNotOpen.
func (e *Engine) readRecord(ctx context.Context, lessonID int64) ([]Event, error) {
	raw, ok, err := e.store.Get(ctx, recordKey(lessonID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOpen
	}
	events, err := decodeRecord(raw)
	if err != nil {
		if delErr := e.Delete(ctx, lessonID); delErr != nil {
			return nil, delErr
		}
		return nil, ErrRecordCorrupt
	}
	return events, nil
}

func (e *Engine) writeRecord(ctx context.Context, lessonID int64, events []Event) error {
	raw, err := encodeRecord(events)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, recordKey(lessonID), raw)
}

func randomSecret() string {
	b := make([]byte, secretLength)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = secretAlphabet[int(b[i])%len(secretAlphabet)]
	}
	return string(b)
}
