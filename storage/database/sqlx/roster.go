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
)

type studentRow struct {
	ID         string    `db:"id"`
	RollNumber int64     `db:"roll_number"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Year       string    `db:"year"`
	Division   string    `db:"division"`
	Department string    `db:"department"`
	CreatedAt  null.Time `db:"created_at"`
	UpdatedAt  null.Time `db:"updated_at"`
}

type batchRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Year      string    `db:"year"`
	Division  string    `db:"division"`
	RollStart int64     `db:"roll_start"`
	RollEnd   int64     `db:"roll_end"`
	Day       string    `db:"day"`
	Time      string    `db:"time"`
	StartDate null.Time `db:"start_date"`
	EndDate   null.Time `db:"end_date"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type rosterRepository struct {
	exec core.DBExecutor
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(exec core.DBExecutor) *rosterRepository {
	return &rosterRepository{exec: exec}
}

func (repo rosterRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo rosterRepository) packStudent(std roster.Student) studentRow {
	return studentRow{
		ID:         std.ID,
		RollNumber: std.RollNumber,
		Name:       std.Name,
		Email:      std.Email,
		Year:       std.Year,
		Division:   std.Division,
		Department: std.Department,
		CreatedAt:  null.NewTime(std.CreatedAt.UTC(), !std.CreatedAt.IsZero()),
		UpdatedAt:  null.NewTime(std.UpdatedAt.UTC(), !std.UpdatedAt.IsZero()),
	}
}

func (repo rosterRepository) unpackStudent(row studentRow) roster.Student {
	return roster.Student{
		ID:         row.ID,
		RollNumber: row.RollNumber,
		Name:       row.Name,
		Email:      row.Email,
		Year:       row.Year,
		Division:   row.Division,
		Department: row.Department,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

func (repo rosterRepository) unpackStudents(rows []studentRow) []roster.Student {
	students := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unpackStudent(row))
	}
	return students
}

func (repo rosterRepository) packBatch(b roster.Batch) batchRow {
	row := batchRow{
		ID:        b.ID,
		Name:      b.Name,
		Year:      b.Year,
		Division:  b.Division,
		RollStart: b.RollStart,
		RollEnd:   b.RollEnd,
		Day:       b.Day,
		Time:      b.Time,
		CreatedAt: null.NewTime(b.CreatedAt.UTC(), !b.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(b.UpdatedAt.UTC(), !b.UpdatedAt.IsZero()),
	}
	if b.StartDate != nil {
		row.StartDate = null.TimeFrom(b.StartDate.UTC())
	}
	if b.EndDate != nil {
		row.EndDate = null.TimeFrom(b.EndDate.UTC())
	}
	return row
}

func (repo rosterRepository) unpackBatch(row batchRow) roster.Batch {
	return roster.Batch{
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
	}
}

func (repo rosterRepository) unpackBatches(rows []batchRow) []roster.Batch {
	batches := make([]roster.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, repo.unpackBatch(row))
	}
	return batches
}

func (repo rosterRepository) trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

const (
	studentCols = `id, roll_number, name, email, year, division, department, created_at, updated_at`
	batchCols   = `id, name, year, division, roll_start, roll_end, day, time, start_date, end_date, created_at, updated_at`
)

func (repo rosterRepository) CreateStudent(ctx context.Context, std roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	std.ID = uuid.New().String()
	q := `
		INSERT INTO students (` + studentCols + `)
		VALUES (:id, :roll_number, :name, :email, :year, :division, :department, :created_at, :updated_at)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packStudent(std)); err != nil {
		if isUniqueViolation(err, "students_roll_number_key") {
			return roster.Student{}, roster.ErrRollNumberExists
		}
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo rosterRepository) QueryStudents(ctx context.Context, filter *roster.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]roster.Student, error) {
	q := `SELECT ` + studentCols + ` FROM students`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mark := arg(val)
			conds = append(conds, `(name ILIKE `+mark+` OR email ILIKE `+mark+` OR CAST(roll_number AS TEXT) LIKE `+mark+`)`)
		}
		if filter.Year != "" {
			conds = append(conds, `year = `+arg(filter.Year))
		}
		if filter.Division != "" {
			conds = append(conds, `division = `+arg(filter.Division))
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
		q += ` ORDER BY roll_number`
	}

	var rows []studentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.unpackStudents(rows), nil
}

func (repo rosterRepository) QueryStudentsInRange(ctx context.Context, start, end int64, exec ...core.DBExecutor) ([]roster.Student, error) {
	q := `SELECT ` + studentCols + ` FROM students WHERE roll_number BETWEEN $1 AND $2 ORDER BY roll_number`
	var rows []studentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, start, end); err != nil {
		return nil, errors.Wrap(err, "querying students in range")
	}
	return repo.unpackStudents(rows), nil
}

func (repo rosterRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (roster.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Student{}, roster.ErrNotFound
	}
	var row studentRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+studentCols+` FROM students WHERE id = $1`, id)
	if err != nil {
		return roster.Student{}, repo.trapNoRowsErr(err, roster.ErrNotFound, "finding student by ID")
	}
	return repo.unpackStudent(row), nil
}

func (repo rosterRepository) GetStudentByRoll(ctx context.Context, roll int64, exec ...core.DBExecutor) (roster.Student, error) {
	var row studentRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+studentCols+` FROM students WHERE roll_number = $1`, roll)
	if err != nil {
		return roster.Student{}, repo.trapNoRowsErr(err, roster.ErrNotFound, "finding student by roll number")
	}
	return repo.unpackStudent(row), nil
}

func (repo rosterRepository) UpdateStudent(ctx context.Context, std roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	q := `
		UPDATE students
		SET name       = :name,
		    email      = :email,
		    year       = :year,
		    division   = :division,
		    department = :department,
		    updated_at = :updated_at
		WHERE id = :id`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packStudent(std)); err != nil {
		return roster.Student{}, errors.Wrap(err, "updating student")
	}
	return repo.GetStudentByID(ctx, std.ID, exec...)
}

func (repo rosterRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return repo.deleteByID(ctx, "students", ids, exec)
}

func (repo rosterRepository) CreateBatch(ctx context.Context, b roster.Batch, exec ...core.DBExecutor) (roster.Batch, error) {
	b.ID = uuid.New().String()
	q := `
		INSERT INTO batches (` + batchCols + `)
		VALUES (:id, :name, :year, :division, :roll_start, :roll_end, :day, :time, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packBatch(b)); err != nil {
		return roster.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return b, nil
}

func (repo rosterRepository) QueryBatches(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]roster.Batch, error) {
	q := `SELECT ` + batchCols + ` FROM batches`
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		q += ` ORDER BY roll_start`
	}

	var rows []batchRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	return repo.unpackBatches(rows), nil
}

func (repo rosterRepository) GetBatchByID(ctx context.Context, id string, exec ...core.DBExecutor) (roster.Batch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Batch{}, roster.ErrBatchNotFound
	}
	var row batchRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT `+batchCols+` FROM batches WHERE id = $1`, id)
	if err != nil {
		return roster.Batch{}, repo.trapNoRowsErr(err, roster.ErrBatchNotFound, "finding batch by ID")
	}
	return repo.unpackBatch(row), nil
}

func (repo rosterRepository) UpdateBatch(ctx context.Context, b roster.Batch, exec ...core.DBExecutor) (roster.Batch, error) {
	q := `
		UPDATE batches
		SET name       = :name,
		    year       = :year,
		    division   = :division,
		    roll_start = :roll_start,
		    roll_end   = :roll_end,
		    day        = :day,
		    time       = :time,
		    start_date = :start_date,
		    end_date   = :end_date,
		    updated_at = :updated_at
		WHERE id = :id`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, repo.packBatch(b)); err != nil {
		return roster.Batch{}, errors.Wrap(err, "updating batch")
	}
	return repo.GetBatchByID(ctx, b.ID, exec...)
}

func (repo rosterRepository) DeleteBatchesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return repo.deleteByID(ctx, "batches", ids, exec)
}

func (repo rosterRepository) deleteByID(ctx context.Context, table string, ids []string, exec []core.DBExecutor) (int, error) {
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
