package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
)

type subjectRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Code        string    `db:"code"`
	Description string    `db:"description"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

type teacherRow struct {
	ID         string      `db:"id"`
	UserID     null.String `db:"user_id"`
	Name       string      `db:"name"`
	Email      string      `db:"email"`
	Department string      `db:"department"`
	IsActive   null.Bool   `db:"is_active"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

type assignmentRow struct {
	ID           string    `db:"id"`
	TeacherID    string    `db:"teacher_id"`
	SubjectID    string    `db:"subject_id"`
	BatchID      string    `db:"batch_id"`
	Division     string    `db:"division"`
	AcademicYear string    `db:"academic_year"`
	IsActive     null.Bool `db:"is_active"`
	CreatedAt    null.Time `db:"created_at"`
	UpdatedAt    null.Time `db:"updated_at"`
}

type teachingRepository struct {
	exec core.DBExecutor
}

var _ teaching.Repository = (*teachingRepository)(nil) // interface compliance check

func NewTeachingRepository(exec core.DBExecutor) *teachingRepository {
	return &teachingRepository{exec: exec}
}

func (repo teachingRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo teachingRepository) trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

const (
	subjectCols    = `id, name, code, description, created_at, updated_at`
	teacherCols    = `id, user_id, name, email, department, is_active, created_at, updated_at`
	assignmentCols = `id, teacher_id, subject_id, batch_id, division, academic_year, is_active, created_at, updated_at`
)

func (repo teachingRepository) packSubject(subj teaching.Subject) subjectRow {
	return subjectRow{
		ID:          subj.ID,
		Name:        subj.Name,
		Code:        subj.Code,
		Description: subj.Description,
		CreatedAt:   null.NewTime(subj.CreatedAt.UTC(), !subj.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(subj.UpdatedAt.UTC(), !subj.UpdatedAt.IsZero()),
	}
}

func (repo teachingRepository) unpackSubject(row subjectRow) teaching.Subject {
	return teaching.Subject{
		ID:          row.ID,
		Name:        row.Name,
		Code:        row.Code,
		Description: row.Description,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo teachingRepository) packTeacher(tchr teaching.Teacher) teacherRow {
	return teacherRow{
		ID:         tchr.ID,
		UserID:     null.NewString(tchr.UserID, tchr.UserID != ""),
		Name:       tchr.Name,
		Email:      tchr.Email,
		Department: tchr.Department,
		IsActive:   null.BoolFromPtr(tchr.IsActive),
		CreatedAt:  null.NewTime(tchr.CreatedAt.UTC(), !tchr.CreatedAt.IsZero()),
		UpdatedAt:  null.NewTime(tchr.UpdatedAt.UTC(), !tchr.UpdatedAt.IsZero()),
	}
}

func (repo teachingRepository) unpackTeacher(row teacherRow) teaching.Teacher {
	return teaching.Teacher{
		ID:         row.ID,
		UserID:     row.UserID.String,
		Name:       row.Name,
		Email:      row.Email,
		Department: row.Department,
		IsActive:   row.IsActive.Ptr(),
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

func (repo teachingRepository) packAssignment(asg teaching.Assignment) assignmentRow {
	return assignmentRow{
		ID:           asg.ID,
		TeacherID:    asg.TeacherID,
		SubjectID:    asg.SubjectID,
		BatchID:      asg.BatchID,
		Division:     asg.Division,
		AcademicYear: asg.AcademicYear,
		IsActive:     null.BoolFromPtr(asg.IsActive),
		CreatedAt:    null.NewTime(asg.CreatedAt.UTC(), !asg.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(asg.UpdatedAt.UTC(), !asg.UpdatedAt.IsZero()),
	}
}

func (repo teachingRepository) unpackAssignment(row assignmentRow) teaching.Assignment {
	return teaching.Assignment{
		ID:           row.ID,
		TeacherID:    row.TeacherID,
		SubjectID:    row.SubjectID,
		BatchID:      row.BatchID,
		Division:     row.Division,
		AcademicYear: row.AcademicYear,
		IsActive:     row.IsActive.Ptr(),
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

func (repo teachingRepository) CreateSubject(ctx context.Context, subj teaching.Subject, exec ...core.DBExecutor) (teaching.Subject, error) {
	subj.ID = uuid.New().String()
	q := `
		INSERT INTO subjects (` + subjectCols + `)
		VALUES (:id, :name, :code, :description, :created_at, :updated_at)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packSubject(subj)); err != nil {
		if isUniqueViolation(err, "subjects_code_key") {
			return teaching.Subject{}, teaching.ErrSubjectCodeExists
		}
		return teaching.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return subj, nil
}

func (repo teachingRepository) QuerySubjects(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teaching.Subject, error) {
	q := `SELECT ` + subjectCols + ` FROM subjects`
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		q += ` ORDER BY code`
	}

	var rows []subjectRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]teaching.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, repo.unpackSubject(row))
	}
	return subjects, nil
}

func (repo teachingRepository) GetSubjectByID(ctx context.Context, id string, exec ...core.DBExecutor) (teaching.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teaching.Subject{}, teaching.ErrSubjectNotFound
	}
	var row subjectRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+subjectCols+` FROM subjects WHERE id = $1`, id)
	if err != nil {
		return teaching.Subject{}, repo.trapNoRowsErr(err, teaching.ErrSubjectNotFound, "finding subject by ID")
	}
	return repo.unpackSubject(row), nil
}

func (repo teachingRepository) UpdateSubject(ctx context.Context, subj teaching.Subject, exec ...core.DBExecutor) (teaching.Subject, error) {
	q := `
		UPDATE subjects
		SET name        = :name,
		    code        = :code,
		    description = :description,
		    updated_at  = :updated_at
		WHERE id = :id`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packSubject(subj)); err != nil {
		if isUniqueViolation(err, "subjects_code_key") {
			return teaching.Subject{}, teaching.ErrSubjectCodeExists
		}
		return teaching.Subject{}, errors.Wrap(err, "updating subject")
	}
	return repo.GetSubjectByID(ctx, subj.ID, exec...)
}

func (repo teachingRepository) DeleteSubjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return repo.deleteByID(ctx, "subjects", ids, exec)
}

func (repo teachingRepository) CreateTeacher(ctx context.Context, tchr teaching.Teacher, exec ...core.DBExecutor) (teaching.Teacher, error) {
	tchr.ID = uuid.New().String()
	q := `
		INSERT INTO teachers (` + teacherCols + `)
		VALUES (:id, :user_id, :name, :email, :department, :is_active, :created_at, :updated_at)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packTeacher(tchr)); err != nil {
		return teaching.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tchr, nil
}

func (repo teachingRepository) QueryTeachers(ctx context.Context, filter *teaching.TeacherFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teaching.Teacher, error) {
	q := `SELECT ` + teacherCols + ` FROM teachers`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Department != "" {
			args = append(args, filter.Department)
			conds = append(conds, `department = $`+strconv.Itoa(len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			conds = append(conds, `is_active = $`+strconv.Itoa(len(args)))
		}
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		q += ` ORDER BY name`
	}

	var rows []teacherRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teaching.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, repo.unpackTeacher(row))
	}
	return teachers, nil
}

func (repo teachingRepository) GetTeacherByID(ctx context.Context, id string, exec ...core.DBExecutor) (teaching.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teaching.Teacher{}, teaching.ErrTeacherNotFound
	}
	var row teacherRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+teacherCols+` FROM teachers WHERE id = $1`, id)
	if err != nil {
		return teaching.Teacher{}, repo.trapNoRowsErr(err, teaching.ErrTeacherNotFound, "finding teacher by ID")
	}
	return repo.unpackTeacher(row), nil
}

func (repo teachingRepository) GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (teaching.Teacher, error) {
	var row teacherRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+teacherCols+` FROM teachers WHERE user_id = $1`, userID)
	if err != nil {
		return teaching.Teacher{}, repo.trapNoRowsErr(err, teaching.ErrTeacherNotFound, "finding teacher by user ID")
	}
	return repo.unpackTeacher(row), nil
}

func (repo teachingRepository) UpdateTeacher(ctx context.Context, tchr teaching.Teacher, exec ...core.DBExecutor) (teaching.Teacher, error) {
	q := `
		UPDATE teachers
		SET user_id    = :user_id,
		    name       = :name,
		    email      = :email,
		    department = :department,
		    is_active  = COALESCE(:is_active, is_active),
		    updated_at = :updated_at
		WHERE id = :id`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packTeacher(tchr)); err != nil {
		return teaching.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	return repo.GetTeacherByID(ctx, tchr.ID, exec...)
}

func (repo teachingRepository) DeleteTeachersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return repo.deleteByID(ctx, "teachers", ids, exec)
}

func (repo teachingRepository) CreateAssignment(ctx context.Context, asg teaching.Assignment, exec ...core.DBExecutor) (teaching.Assignment, error) {
	asg.ID = uuid.New().String()
	q := `
		INSERT INTO assignments (` + assignmentCols + `)
		VALUES (:id, :teacher_id, :subject_id, :batch_id, :division, :academic_year, :is_active, :created_at, :updated_at)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packAssignment(asg)); err != nil {
		return teaching.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo teachingRepository) QueryAssignments(ctx context.Context, filter *teaching.AssignmentFilter, exec ...core.DBExecutor) ([]teaching.Assignment, error) {
	q := `SELECT ` + assignmentCols + ` FROM assignments`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.TeacherID != "" {
			conds = append(conds, `teacher_id = `+arg(filter.TeacherID))
		}
		if filter.SubjectID != "" {
			conds = append(conds, `subject_id = `+arg(filter.SubjectID))
		}
		if filter.BatchID != "" {
			conds = append(conds, `batch_id = `+arg(filter.BatchID))
		}
		if filter.AcademicYear != "" {
			conds = append(conds, `academic_year = `+arg(filter.AcademicYear))
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = `+arg(*filter.IsActive))
		}
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY created_at`

	var rows []assignmentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]teaching.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, repo.unpackAssignment(row))
	}
	return assignments, nil
}

func (repo teachingRepository) GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (teaching.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teaching.Assignment{}, teaching.ErrAssignmentNotFound
	}
	var row assignmentRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+assignmentCols+` FROM assignments WHERE id = $1`, id)
	if err != nil {
		return teaching.Assignment{}, repo.trapNoRowsErr(err, teaching.ErrAssignmentNotFound, "finding assignment by ID")
	}
	return repo.unpackAssignment(row), nil
}

func (repo teachingRepository) UpdateAssignment(ctx context.Context, asg teaching.Assignment, exec ...core.DBExecutor) (teaching.Assignment, error) {
	q := `
		UPDATE assignments
		SET teacher_id    = :teacher_id,
		    subject_id    = :subject_id,
		    batch_id      = :batch_id,
		    division      = :division,
		    academic_year = :academic_year,
		    is_active     = COALESCE(:is_active, is_active),
		    updated_at    = :updated_at
		WHERE id = :id`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packAssignment(asg)); err != nil {
		return teaching.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return repo.GetAssignmentByID(ctx, asg.ID, exec...)
}

func (repo teachingRepository) DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return repo.deleteByID(ctx, "assignments", ids, exec)
}

// QueryActiveTeacherBatches resolves the batches a teacher currently covers
// through their active assignments.
func (repo teachingRepository) QueryActiveTeacherBatches(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]roster.Batch, error) {
	q := `
		SELECT DISTINCT b.id, b.name, b.year, b.division, b.roll_start, b.roll_end,
		       b.day, b.time, b.start_date, b.end_date, b.created_at, b.updated_at
		FROM batches b
		JOIN assignments a ON a.batch_id = b.id
		WHERE a.teacher_id = $1 AND a.is_active
		ORDER BY b.roll_start`
	var rows []batchRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying teacher batches")
	}
	batches := make([]roster.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, roster.Batch{
			ID:        row.ID,
			Name:      row.Name,
			Year:      row.Year,
			Division:  row.Division,
			RollStart: row.RollStart,
			RollEnd:   row.RollEnd,
			Day:       row.Day,
			Time:      row.Time,
			StartDate: row.StartDate.Ptr(),
			EndDate:   row.EndDate.Ptr(),
			CreatedAt: row.CreatedAt.Time,
			UpdatedAt: row.UpdatedAt.Time,
		})
	}
	return batches, nil
}

func (repo teachingRepository) deleteByID(ctx context.Context, table string, ids []string, exec []core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		marks = append(marks, "$"+strconv.Itoa(len(args)))
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM `+table+` WHERE id IN (`+strings.Join(marks, ", ")+`)`, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting from "+table)
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
