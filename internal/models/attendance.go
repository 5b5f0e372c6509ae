package models

import (
	"database/sql"
	"time"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one student's status for one calendar day.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"studentId"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// AttendanceRecordDetail is a record left-joined to its student. The student
// columns are null when the student row is gone.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName   sql.NullString `db:"student_name"`
	StudentRollNo sql.NullInt64  `db:"student_roll_no"`
}

// Student resolves the joined student or the deleted placeholder.
func (d AttendanceRecordDetail) Student() StudentRef {
	if !d.StudentName.Valid {
		return DeletedStudent()
	}
	ref := StudentRef{ID: d.StudentID, Name: d.StudentName.String}
	if d.StudentRollNo.Valid {
		ref.RollNo = KnownRollNo(int(d.StudentRollNo.Int64))
	}
	return ref
}

// DailyPresence counts present records on one day.
type DailyPresence struct {
	Date    time.Time `db:"date"`
	Present int       `db:"present"`
}

// AttendanceEntry is one student status inside a mark or edit batch.
type AttendanceEntry struct {
	StudentID string
	Status    AttendanceStatus
}
