package models

import "errors"

// Department is the partition key for every employee, category and record
// table. The two departments share no data: every query is issued against the
// department's own table set.
type Department string

const (
	// DepartmentSupport is the customer support department.
	DepartmentSupport Department = "support"
	// DepartmentPreTrial is the pre-trial claims department.
	DepartmentPreTrial Department = "pre_trial"
)

// ErrUnknownDepartment is returned when a chat is not bound to any department.
var ErrUnknownDepartment = errors.New("chat is not bound to a known department")

// Valid reports whether the department is one of the two known partitions.
func (d Department) Valid() bool {
	return d == DepartmentSupport || d == DepartmentPreTrial
}

// TablePrefix returns the table name prefix for the department. It returns
// an empty string for an unknown department, so callers building SQL must
// check Valid first.
func (d Department) TablePrefix() string {
	if !d.Valid() {
		return ""
	}
	return string(d)
}
