package roster

import (
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Student is one enrolled student, keyed by roll number.
type Student struct {
	ID         string    `json:"id"`
	RollNumber int64     `json:"roll_number"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Year       string    `json:"year"`
	Division   string    `json:"division"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Batch is a cohort of students sharing a contiguous roll-number range,
// schedule and subject assignment. Membership is derived from the range.
type Batch struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Year      string     `json:"year"`
	Division  string     `json:"division"`
	RollStart int64      `json:"roll_start"`
	RollEnd   int64      `json:"roll_end"`
	Day       string     `json:"day"`
	Time      string     `json:"time"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	UpdatedAt time.Time  `json:"updated_at"` // UTC
}

// Contains reports whether roll falls in the batch's range; both ends inclusive.
func (b Batch) Contains(roll int64) bool {
	return b.RollStart <= roll && roll <= b.RollEnd
}

// ParseRoll normalizes an externally supplied roll number to its integer form.
// Roll numbers compare numerically everywhere; "9999" < "23101".
func ParseRoll(s string) (int64, error) {
	roll, err := strconv.ParseInt(core.CleanString(s), 10, 64)
	if err != nil || roll <= 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: "roll_number", Error: "a valid roll number is required"})
	}
	return roll, nil
}

// NewStudent contains information needed to register a Student.
type NewStudent struct {
	RollNumber *int64 `json:"roll_number" validate:"required,min=1"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Year       string `json:"year"`
	Division   string `json:"division"`
	Department string `json:"department"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Year = core.CleanString(ns.Year)
	ns.Division = core.CleanString(ns.Division)
	ns.Department = core.CleanString(ns.Department)
	return validate.Struct(ns)
}

// UpdateStudent defines what may be modified on an existing Student.
// The roll number is externally assigned and immutable here.
type UpdateStudent struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Year       string `json:"year"`
	Division   string `json:"division"`
	Department string `json:"department"`
}

func (us *UpdateStudent) Validate(origStd Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = origStd.Name
	}
	if us.Email = core.CleanString(us.Email, true /* lower */); us.Email == "" {
		us.Email = origStd.Email
	}
	if us.Year = core.CleanString(us.Year); us.Year == "" {
		us.Year = origStd.Year
	}
	if us.Division = core.CleanString(us.Division); us.Division == "" {
		us.Division = origStd.Division
	}
	if us.Department = core.CleanString(us.Department); us.Department == "" {
		us.Department = origStd.Department
	}
	return validate.Struct(us)
}

// NewBatch contains information needed to create a Batch.
type NewBatch struct {
	Name      string     `json:"name" validate:"required"`
	Year      string     `json:"year"`
	Division  string     `json:"division"`
	RollStart *int64     `json:"roll_start" validate:"required,min=1"`
	RollEnd   *int64     `json:"roll_end" validate:"required,min=1"`
	Day       string     `json:"day"`
	Time      string     `json:"time"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (nb *NewBatch) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	return validate.Struct(nb)
}

// UpdateBatch defines what may be modified on an existing Batch.
type UpdateBatch struct {
	Name      string     `json:"name"`
	Year      string     `json:"year"`
	Division  string     `json:"division"`
	RollStart *int64     `json:"roll_start" validate:"omitempty,min=1"`
	RollEnd   *int64     `json:"roll_end" validate:"omitempty,min=1"`
	Day       string     `json:"day"`
	Time      string     `json:"time"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (ub *UpdateBatch) Validate(origBatch Batch, validate *validator.Validate) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = origBatch.Name
	}
	if ub.RollStart == nil {
		ub.RollStart = &origBatch.RollStart
	}
	if ub.RollEnd == nil {
		ub.RollEnd = &origBatch.RollEnd
	}
	return validate.Struct(ub)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Year     string `query:"year"`
	Division string `query:"division"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Year == "" && qf.Division == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Year = core.CleanString(qf.Year)
	qf.Division = core.CleanString(qf.Division)
}

var (
	rollRangeTag  = "rollrange"
	rollRangeText = "roll_start must not exceed roll_end"
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(batchStructValidation, NewBatch{})
	validate.RegisterStructValidation(batchStructValidation, UpdateBatch{})
	core.RegisterCustomTranslation(validate, translator, rollRangeTag, rollRangeText)
}

// batchStructValidation enforces roll_start <= roll_end on NewBatch and UpdateBatch.
func batchStructValidation(sl validator.StructLevel) {
	var start, end *int64
	switch b := sl.Current().Interface().(type) {
	case NewBatch:
		start, end = b.RollStart, b.RollEnd
	case UpdateBatch:
		start, end = b.RollStart, b.RollEnd
	}
	if start != nil && end != nil && *start > *end {
		sl.ReportError(*start, "roll_start", "RollStart", rollRangeTag, "")
	}
}
