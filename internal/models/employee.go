package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// ValueOrEmpty returns the wrapped string or "" when null
func (ns NullString) ValueOrEmpty() string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NewNullString builds a valid NullString; an empty input stays null
func NewNullString(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: s != ""}}
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// NewNullTime builds a valid NullTime
func NewNullTime(t time.Time) NullTime {
	return NullTime{sql.NullTime{Time: t, Valid: true}}
}

// Employee represents a row in the employee directory. The directory is
// read-only from the workflow engine's perspective; rows are synced from HR.
type Employee struct {
	ID            string     `json:"emp_id" db:"emp_id"`
	Email         string     `json:"emp_email" db:"emp_email"`
	Name          string     `json:"emp_name" db:"emp_name"`
	Department    string     `json:"dept" db:"dept"`
	SubDepartment NullString `json:"sub_dept" db:"sub_dept"`
	Location      NullString `json:"emp_location" db:"emp_location"`
	Designation   NullString `json:"designation" db:"designation"`
	Active        bool       `json:"active" db:"active"`
	ManagerID     NullString `json:"manager_id,omitempty" db:"manager_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HasManager reports whether the employee has a manager on file. Top-of-tree
// employees (MD level) have none.
func (e *Employee) HasManager() bool {
	return e.ManagerID.Valid && e.ManagerID.String != ""
}
