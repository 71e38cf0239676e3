package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
)

type assessmentRow struct {
	ID            string `db:"id"`
	StudentRollNo int64  `db:"student_roll_no"`
	ExperimentNo  int    `db:"experiment_no"`
	TeacherID     string `db:"teacher_id"`

	ScheduledPerformanceDate null.Time `db:"scheduled_performance_date"`
	ActualPerformanceDate    null.Time `db:"actual_performance_date"`
	ScheduledSubmissionDate  null.Time `db:"scheduled_submission_date"`
	ActualSubmissionDate     null.Time `db:"actual_submission_date"`

	RppMarks               null.Int `db:"rpp_marks"`
	SpoMarks               null.Int `db:"spo_marks"`
	AssignmentMarks        null.Int `db:"assignment_marks"`
	FinalAssignmentMarks   null.Int `db:"final_assignment_marks"`
	TestMarks              null.Int `db:"test_marks"`
	TheoryAttendanceMarks  null.Int `db:"theory_attendance_marks"`
	UnitTest1Marks         null.Int `db:"unit_test1_marks"`
	UnitTest2Marks         null.Int `db:"unit_test2_marks"`
	UnitTest3Marks         null.Int `db:"unit_test3_marks"`
	ConvertedUnitTestMarks null.Int `db:"converted_unit_test_marks"`
	FinalMarks             null.Int `db:"final_marks"`

	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type assessmentRepository struct {
	exec core.DBExecutor
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(exec core.DBExecutor) *assessmentRepository {
	return &assessmentRepository{exec: exec}
}

func (repo assessmentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo assessmentRepository) pack(a assessment.Assessment) assessmentRow {
	return assessmentRow{
		ID:            a.ID,
		StudentRollNo: a.StudentRollNo,
		ExperimentNo:  a.ExperimentNo,
		TeacherID:     a.TeacherID,

		ScheduledPerformanceDate: nullTimeFromPtr(a.ScheduledPerformanceDate),
		ActualPerformanceDate:    nullTimeFromPtr(a.ActualPerformanceDate),
		ScheduledSubmissionDate:  nullTimeFromPtr(a.ScheduledSubmissionDate),
		ActualSubmissionDate:     nullTimeFromPtr(a.ActualSubmissionDate),

		RppMarks:               null.IntFromPtr(a.RppMarks),
		SpoMarks:               null.IntFromPtr(a.SpoMarks),
		AssignmentMarks:        null.IntFromPtr(a.AssignmentMarks),
		FinalAssignmentMarks:   null.IntFromPtr(a.FinalAssignmentMarks),
		TestMarks:              null.IntFromPtr(a.TestMarks),
		TheoryAttendanceMarks:  null.IntFromPtr(a.TheoryAttendanceMarks),
		UnitTest1Marks:         null.IntFromPtr(a.UnitTest1Marks),
		UnitTest2Marks:         null.IntFromPtr(a.UnitTest2Marks),
		UnitTest3Marks:         null.IntFromPtr(a.UnitTest3Marks),
		ConvertedUnitTestMarks: null.IntFromPtr(a.ConvertedUnitTestMarks),
		FinalMarks:             null.IntFromPtr(a.FinalMarks),

		CreatedAt: null.NewTime(a.CreatedAt.UTC(), !a.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(a.UpdatedAt.UTC(), !a.UpdatedAt.IsZero()),
	}
}

func (repo assessmentRepository) unpack(row assessmentRow) assessment.Assessment {
	return assessment.Assessment{
		ID:            row.ID,
		StudentRollNo: row.StudentRollNo,
		ExperimentNo:  row.ExperimentNo,
		TeacherID:     row.TeacherID,

		ScheduledPerformanceDate: row.ScheduledPerformanceDate.Ptr(),
		ActualPerformanceDate:    row.ActualPerformanceDate.Ptr(),
		ScheduledSubmissionDate:  row.ScheduledSubmissionDate.Ptr(),
		ActualSubmissionDate:     row.ActualSubmissionDate.Ptr(),

		RppMarks:               row.RppMarks.Ptr(),
		SpoMarks:               row.SpoMarks.Ptr(),
		AssignmentMarks:        row.AssignmentMarks.Ptr(),
		FinalAssignmentMarks:   row.FinalAssignmentMarks.Ptr(),
		TestMarks:              row.TestMarks.Ptr(),
		TheoryAttendanceMarks:  row.TheoryAttendanceMarks.Ptr(),
		UnitTest1Marks:         row.UnitTest1Marks.Ptr(),
		UnitTest2Marks:         row.UnitTest2Marks.Ptr(),
		UnitTest3Marks:         row.UnitTest3Marks.Ptr(),
		ConvertedUnitTestMarks: row.ConvertedUnitTestMarks.Ptr(),
		FinalMarks:             row.FinalMarks.Ptr(),

		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo assessmentRepository) unpackSlice(rows []assessmentRow) []assessment.Assessment {
	asmts := make([]assessment.Assessment, 0, len(rows))
	for _, row := range rows {
		asmts = append(asmts, repo.unpack(row))
	}
	return asmts
}

func (repo assessmentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return assessment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const assessmentCols = `id, student_roll_no, experiment_no, teacher_id,
	scheduled_performance_date, actual_performance_date, scheduled_submission_date, actual_submission_date,
	rpp_marks, spo_marks, assignment_marks, final_assignment_marks, test_marks, theory_attendance_marks,
	unit_test1_marks, unit_test2_marks, unit_test3_marks, converted_unit_test_marks, final_marks,
	created_at, updated_at`

const assessmentVals = `:id, :student_roll_no, :experiment_no, :teacher_id,
	:scheduled_performance_date, :actual_performance_date, :scheduled_submission_date, :actual_submission_date,
	:rpp_marks, :spo_marks, :assignment_marks, :final_assignment_marks, :test_marks, :theory_attendance_marks,
	:unit_test1_marks, :unit_test2_marks, :unit_test3_marks, :converted_unit_test_marks, :final_marks,
	:created_at, :updated_at`

func (repo assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	a.ID = uuid.New().String()
	q := `INSERT INTO assessments (` + assessmentCols + `) VALUES (` + assessmentVals + `)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.pack(a)); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return a, nil
}

// UpsertAssessment inserts a new record or, on a (student_roll_no,
// experiment_no) conflict, merges the set fields into the existing one. The
// merge happens in one statement so concurrent saves for the same experiment
// cannot produce duplicates.
func (repo assessmentRepository) UpsertAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	a.ID = uuid.New().String()
	mergeCols := []string{
		"scheduled_performance_date", "actual_performance_date", "scheduled_submission_date", "actual_submission_date",
		"rpp_marks", "spo_marks", "assignment_marks", "final_assignment_marks", "test_marks", "theory_attendance_marks",
		"unit_test1_marks", "unit_test2_marks", "unit_test3_marks", "converted_unit_test_marks", "final_marks",
	}
	sets := make([]string, 0, len(mergeCols)+2)
	sets = append(sets, "teacher_id = EXCLUDED.teacher_id", "updated_at = EXCLUDED.updated_at")
	for _, col := range mergeCols {
		sets = append(sets, col+" = COALESCE(EXCLUDED."+col+", assessments."+col+")")
	}

	q := `
		INSERT INTO assessments (` + assessmentCols + `) VALUES (` + assessmentVals + `)
		ON CONFLICT ON CONSTRAINT assessments_student_experiment
		DO UPDATE SET ` + strings.Join(sets, ", ")
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.pack(a)); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "upserting assessment")
	}
	return repo.getByNaturalKey(ctx, a.StudentRollNo, a.ExperimentNo, exec)
}

func (repo assessmentRepository) getByNaturalKey(ctx context.Context, roll int64, experiment int, exec []core.DBExecutor) (assessment.Assessment, error) {
	var row assessmentRow
	q := `SELECT ` + assessmentCols + ` FROM assessments WHERE student_roll_no = $1 AND experiment_no = $2`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, roll, experiment); err != nil {
		return assessment.Assessment{}, repo.trapNoRowsErr(err, "finding assessment")
	}
	return repo.unpack(row), nil
}

func (repo assessmentRepository) GetAssessmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	var row assessmentRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+assessmentCols+` FROM assessments WHERE id = $1`, id)
	if err != nil {
		return assessment.Assessment{}, repo.trapNoRowsErr(err, "finding assessment by ID")
	}
	return repo.unpack(row), nil
}

func (repo assessmentRepository) QueryStudentAssessments(ctx context.Context, roll int64, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	q := `SELECT ` + assessmentCols + ` FROM assessments WHERE student_roll_no = $1 ORDER BY experiment_no`
	var rows []assessmentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, roll); err != nil {
		return nil, errors.Wrap(err, "querying student assessments")
	}
	return repo.unpackSlice(rows), nil
}

func (repo assessmentRepository) QueryAssessmentsInRange(ctx context.Context, rollStart, rollEnd int64, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	q := `
		SELECT ` + assessmentCols + ` FROM assessments
		WHERE student_roll_no BETWEEN $1 AND $2
		ORDER BY student_roll_no, experiment_no`
	var rows []assessmentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, rollStart, rollEnd); err != nil {
		return nil, errors.Wrap(err, "querying assessments in range")
	}
	return repo.unpackSlice(rows), nil
}

func (repo assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	q := `
		UPDATE assessments
		SET teacher_id                 = :teacher_id,
		    scheduled_performance_date = :scheduled_performance_date,
		    actual_performance_date    = :actual_performance_date,
		    scheduled_submission_date  = :scheduled_submission_date,
		    actual_submission_date     = :actual_submission_date,
		    rpp_marks                  = :rpp_marks,
		    spo_marks                  = :spo_marks,
		    assignment_marks           = :assignment_marks,
		    final_assignment_marks     = :final_assignment_marks,
		    test_marks                 = :test_marks,
		    theory_attendance_marks    = :theory_attendance_marks,
		    unit_test1_marks           = :unit_test1_marks,
		    unit_test2_marks           = :unit_test2_marks,
		    unit_test3_marks           = :unit_test3_marks,
		    converted_unit_test_marks  = :converted_unit_test_marks,
		    final_marks                = :final_marks,
		    updated_at                 = :updated_at
		WHERE id = :id`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.pack(a)); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	return repo.GetAssessmentByID(ctx, a.ID, exec...)
}

func (repo assessmentRepository) DeleteAssessmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	marks := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		marks = append(marks, "$"+strconv.Itoa(len(args)))
	}
	if _, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM assessments WHERE id IN (`+strings.Join(marks, ", ")+`)`, args...); err != nil {
		return errors.Wrap(err, "deleting assessments")
	}
	return nil
}

func nullTimeFromPtr(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}
