package models

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Placeholder values rendered for attendance whose student no longer resolves.
const (
	DeletedStudentName   = "Deleted Student"
	DeletedStudentRollNo = "-"
)

// Student represents a learner on the roster.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RollNo    int       `db:"roll_no" json:"rollNo"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RollNo is a roll number that may be unknown. Unknown numbers render as "-".
type RollNo struct {
	Value int
	Valid bool
}

// KnownRollNo wraps a resolved roll number.
func KnownRollNo(v int) RollNo {
	return RollNo{Value: v, Valid: true}
}

// String returns the display form of the roll number.
func (r RollNo) String() string {
	if !r.Valid {
		return DeletedStudentRollNo
	}
	return strconv.Itoa(r.Value)
}

// MarshalJSON renders known roll numbers as JSON numbers and unknown ones as "-".
func (r RollNo) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte(strconv.Quote(DeletedStudentRollNo)), nil
	}
	return []byte(strconv.Itoa(r.Value)), nil
}

// UnmarshalJSON accepts a number, or the "-" placeholder.
func (r *RollNo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(strconv.Quote(DeletedStudentRollNo))) {
		*r = RollNo{}
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid roll number %s", data)
	}
	*r = KnownRollNo(v)
	return nil
}

// StudentRef is the student side of a report row.
type StudentRef struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	RollNo RollNo `json:"rollNo"`
}

// DeletedStudent returns the placeholder for an unresolvable student.
func DeletedStudent() StudentRef {
	return StudentRef{Name: DeletedStudentName}
}
