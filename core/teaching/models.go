package teaching

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Subject is one taught subject, eg. "CS301 Data Structures".
type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Teacher is a teacher profile, optionally linked to a login account.
type Teacher struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	IsActive   *bool     `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (t *Teacher) SetActive(active bool) { t.IsActive = &active }

// Assignment binds a Teacher to a Subject and a Batch for an academic year.
// An active Assignment is the unit of authorization: it grants the teacher
// access to every student whose roll number falls in the batch's range.
// Assignments are deactivated on reallocation, never deleted.
type Assignment struct {
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacher_id"`
	SubjectID    string    `json:"subject_id"`
	BatchID      string    `json:"batch_id"`
	Division     string    `json:"division"`
	AcademicYear string    `json:"academic_year"`
	IsActive     *bool     `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (a *Assignment) SetActive(active bool) { a.IsActive = &active }

type NewSubject struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Description string `json:"description"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	return validate.Struct(ns)
}

type UpdateSubject struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (us *UpdateSubject) Validate(origSubj Subject, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = origSubj.Name
	}
	if code := core.CleanString(us.Code); code != "" {
		us.Code = code
	} else {
		us.Code = origSubj.Code
	}
	return validate.Struct(us)
}

type NewTeacher struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Department = core.CleanString(nt.Department)
	return validate.Struct(nt)
}

type UpdateTeacher struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department"`
	IsActive   *bool  `json:"is_active"`
}

func (ut *UpdateTeacher) Validate(origTchr Teacher, validate *validator.Validate) error {
	if name := core.CleanString(ut.Name); name != "" {
		ut.Name = name
	} else {
		ut.Name = origTchr.Name
	}
	ut.Email = core.CleanString(ut.Email, true /* lower */)
	return validate.Struct(ut)
}

// NewAssignment allocates a teacher to a subject and batch.
type NewAssignment struct {
	TeacherID    string `json:"teacher_id" validate:"required,uuid4"`
	SubjectID    string `json:"subject_id" validate:"required,uuid4"`
	BatchID      string `json:"batch_id" validate:"required,uuid4"`
	Division     string `json:"division"`
	AcademicYear string `json:"academic_year"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// UpdateAssignment may reassign or (de)activate an allocation.
type UpdateAssignment struct {
	Division     string `json:"division"`
	AcademicYear string `json:"academic_year"`
	IsActive     *bool  `json:"is_active"`
}

type AssignmentFilter struct {
	TeacherID    string `query:"teacher_id"`
	SubjectID    string `query:"subject_id"`
	BatchID      string `query:"batch_id"`
	AcademicYear string `query:"academic_year"`
	IsActive     *bool  `query:"is_active"`
}

func (af *AssignmentFilter) IsEmpty() bool {
	return af.TeacherID == "" && af.SubjectID == "" && af.BatchID == "" && af.AcademicYear == "" && af.IsActive == nil
}

type TeacherFilter struct {
	Department string `query:"department"`
	IsActive   *bool  `query:"is_active"`
}

func (tf *TeacherFilter) IsEmpty() bool { return tf.Department == "" && tf.IsActive == nil }
