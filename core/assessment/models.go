package assessment

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Assessment is one student's record for one lab experiment. All mark fields
// are optional; a nil mark has never been awarded.
type Assessment struct {
	ID            string `json:"id"`
	StudentRollNo int64  `json:"student_roll_no"`
	ExperimentNo  int    `json:"experiment_no"`
	TeacherID     string `json:"teacher_id"` // author of the last write

	ScheduledPerformanceDate *time.Time `json:"scheduled_performance_date"`
	ActualPerformanceDate    *time.Time `json:"actual_performance_date"`
	ScheduledSubmissionDate  *time.Time `json:"scheduled_submission_date"`
	ActualSubmissionDate     *time.Time `json:"actual_submission_date"`

	RppMarks               *int `json:"rpp_marks"`
	SpoMarks               *int `json:"spo_marks"`
	AssignmentMarks        *int `json:"assignment_marks"`
	FinalAssignmentMarks   *int `json:"final_assignment_marks"`
	TestMarks              *int `json:"test_marks"`
	TheoryAttendanceMarks  *int `json:"theory_attendance_marks"`
	UnitTest1Marks         *int `json:"unit_test1_marks"`
	UnitTest2Marks         *int `json:"unit_test2_marks"`
	UnitTest3Marks         *int `json:"unit_test3_marks"`
	ConvertedUnitTestMarks *int `json:"converted_unit_test_marks"`
	FinalMarks             *int `json:"final_marks"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// SaveAssessment is the teacher-facing write payload. Fields left nil are
// not touched on update; mark bounds are closed ranges.
type SaveAssessment struct {
	ID            string `json:"id" validate:"omitempty,uuid4"`
	StudentRollNo *int64 `json:"student_roll_no" validate:"omitempty,min=1"`
	ExperimentNo  *int   `json:"experiment_no" validate:"omitempty,min=0,max=12"`

	ScheduledPerformanceDate *time.Time `json:"scheduled_performance_date"`
	ActualPerformanceDate    *time.Time `json:"actual_performance_date"`
	ScheduledSubmissionDate  *time.Time `json:"scheduled_submission_date"`
	ActualSubmissionDate     *time.Time `json:"actual_submission_date"`

	RppMarks               *int `json:"rpp_marks" validate:"omitempty,min=0,max=5"`
	SpoMarks               *int `json:"spo_marks" validate:"omitempty,min=0,max=5"`
	AssignmentMarks        *int `json:"assignment_marks" validate:"omitempty,min=0,max=10"`
	FinalAssignmentMarks   *int `json:"final_assignment_marks" validate:"omitempty,min=0,max=60"`
	TestMarks              *int `json:"test_marks" validate:"omitempty,min=0"`
	TheoryAttendanceMarks  *int `json:"theory_attendance_marks" validate:"omitempty,min=0,max=20"`
	UnitTest1Marks         *int `json:"unit_test1_marks" validate:"omitempty,min=0,max=30"`
	UnitTest2Marks         *int `json:"unit_test2_marks" validate:"omitempty,min=0,max=30"`
	UnitTest3Marks         *int `json:"unit_test3_marks" validate:"omitempty,min=0,max=30"`
	ConvertedUnitTestMarks *int `json:"converted_unit_test_marks" validate:"omitempty,min=0"`
	FinalMarks             *int `json:"final_marks" validate:"omitempty,min=0"`
}

func (sa *SaveAssessment) Validate(validate *validator.Validate) error {
	return validate.Struct(sa)
}

// apply copies every set field of the payload onto the record.
func (sa *SaveAssessment) apply(a *Assessment) {
	if sa.ExperimentNo != nil {
		a.ExperimentNo = *sa.ExperimentNo
	}
	if sa.ScheduledPerformanceDate != nil {
		a.ScheduledPerformanceDate = sa.ScheduledPerformanceDate
	}
	if sa.ActualPerformanceDate != nil {
		a.ActualPerformanceDate = sa.ActualPerformanceDate
	}
	if sa.ScheduledSubmissionDate != nil {
		a.ScheduledSubmissionDate = sa.ScheduledSubmissionDate
	}
	if sa.ActualSubmissionDate != nil {
		a.ActualSubmissionDate = sa.ActualSubmissionDate
	}
	if sa.RppMarks != nil {
		a.RppMarks = sa.RppMarks
	}
	if sa.SpoMarks != nil {
		a.SpoMarks = sa.SpoMarks
	}
	if sa.AssignmentMarks != nil {
		a.AssignmentMarks = sa.AssignmentMarks
	}
	if sa.FinalAssignmentMarks != nil {
		a.FinalAssignmentMarks = sa.FinalAssignmentMarks
	}
	if sa.TestMarks != nil {
		a.TestMarks = sa.TestMarks
	}
	if sa.TheoryAttendanceMarks != nil {
		a.TheoryAttendanceMarks = sa.TheoryAttendanceMarks
	}
	if sa.UnitTest1Marks != nil {
		a.UnitTest1Marks = sa.UnitTest1Marks
	}
	if sa.UnitTest2Marks != nil {
		a.UnitTest2Marks = sa.UnitTest2Marks
	}
	if sa.UnitTest3Marks != nil {
		a.UnitTest3Marks = sa.UnitTest3Marks
	}
	if sa.ConvertedUnitTestMarks != nil {
		a.ConvertedUnitTestMarks = sa.ConvertedUnitTestMarks
	}
	if sa.FinalMarks != nil {
		a.FinalMarks = sa.FinalMarks
	}
}

// PerformanceSummary aggregates a student's assessments for the portal view.
// Attendance is derived from performance dates: an experiment counts as
// attended once its actual performance date is set.
type PerformanceSummary struct {
	StudentRollNo int64 `json:"student_roll_no"`
	Experiments   int   `json:"experiments"`
	Performed     int   `json:"performed"`
	Submitted     int   `json:"submitted"`

	RppTotal             int `json:"rpp_total"`
	SpoTotal             int `json:"spo_total"`
	AssignmentTotal      int `json:"assignment_total"`
	FinalAssignmentTotal int `json:"final_assignment_total"`
	FinalTotal           int `json:"final_total"`
}

// InitValidators registers this package's custom validators and translations.
// StudentRollNo and ExperimentNo presence is checked at struct level so that
// experiment 0 (a valid experiment) is not mistaken for an unset field.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(saveStructValidation, SaveAssessment{})
	core.RegisterCustomTranslation(validate, translator, core.RequiredTag, core.RequiredText, true)
}

func saveStructValidation(sl validator.StructLevel) {
	sa, ok := sl.Current().Interface().(SaveAssessment)
	if !ok {
		return
	}
	if sa.StudentRollNo == nil {
		sl.ReportError(sa.StudentRollNo, "student_roll_no", "StudentRollNo", core.RequiredTag, "")
	}
	if sa.ExperimentNo == nil {
		sl.ReportError(sa.ExperimentNo, "experiment_no", "ExperimentNo", core.RequiredTag, "")
	}
}
