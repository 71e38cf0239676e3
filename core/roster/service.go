package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
)

var (
	// errors
	ErrNotFound         = errors.New("student not found")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrRollNumberExists = errors.New("a student with this roll number already exists")

	csvHeader = []string{"rollNumber", "name", "email", "year", "division", "department"}
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		// QueryStudentsInRange returns students whose roll number falls in
		// [start, end], ordered by roll number.
		QueryStudentsInRange(ctx context.Context, start, end int64, exec ...core.DBExecutor) ([]Student, error)
		GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		GetStudentByRoll(ctx context.Context, roll int64, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		QueryBatches(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Batch, error)
		GetBatchByID(ctx context.Context, id string, exec ...core.DBExecutor) (Batch, error)
		UpdateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		DeleteBatchesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter) ([]Student, error)
		QueryBatchStudents(ctx context.Context, batchID string) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByRoll(ctx context.Context, roll int64) (Student, error)
		UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error)
		DeleteStudents(ctx context.Context, ids ...string) error
		ImportStudentsCSV(ctx context.Context, r io.Reader) (ImportReport, error)

		CreateBatch(ctx context.Context, nb NewBatch) (Batch, error)
		QueryBatches(ctx context.Context) ([]Batch, error)
		GetBatchByID(ctx context.Context, id string) (Batch, error)
		UpdateBatch(ctx context.Context, id string, ub UpdateBatch) (Batch, error)
		DeleteBatches(ctx context.Context, ids ...string) error
	}

	service struct {
		db       core.DB
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, validate *validator.Validate) ServiceInterface {
	return &service{db: db, repo: repo, validate: validate}
}

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	std := Student{
		RollNumber: *ns.RollNumber,
		Name:       ns.Name,
		Email:      ns.Email,
		Year:       ns.Year,
		Division:   ns.Division,
		Department: ns.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	if err != nil {
		if errors.Cause(err) == ErrRollNumberExists {
			return Student{}, core.NewFieldError("roll_number", err)
		}
		return Student{}, err
	}
	return std, nil
}

func (svc *service) QueryStudents(ctx context.Context, filter *QueryFilter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, []core.DBOrdering{{Field: "roll_number", Ascending: true}})
}

func (svc *service) QueryBatchStudents(ctx context.Context, batchID string) ([]Student, error) {
	b, err := svc.repo.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryStudentsInRange(ctx, b.RollStart, b.RollEnd)
}

func (svc *service) GetStudentByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) GetStudentByRoll(ctx context.Context, roll int64) (Student, error) {
	return svc.repo.GetStudentByRoll(ctx, roll)
}

func (svc *service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std := Student{
		ID:         id,
		Name:       us.Name,
		Email:      us.Email,
		Year:       us.Year,
		Division:   us.Division,
		Department: us.Department,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) DeleteStudents(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, ids)
	return err
}

func (svc *service) CreateBatch(ctx context.Context, nb NewBatch) (Batch, error) {
	if err := nb.Validate(svc.validate); err != nil {
		return Batch{}, err
	}
	now := time.Now().UTC()
	b := Batch{
		Name:      nb.Name,
		Year:      nb.Year,
		Division:  nb.Division,
		RollStart: *nb.RollStart,
		RollEnd:   *nb.RollEnd,
		Day:       nb.Day,
		Time:      nb.Time,
		StartDate: nb.StartDate,
		EndDate:   nb.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateBatch(ctx, b)
}

func (svc *service) QueryBatches(ctx context.Context) ([]Batch, error) {
	return svc.repo.QueryBatches(ctx, []core.DBOrdering{{Field: "roll_start", Ascending: true}})
}

func (svc *service) GetBatchByID(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatchByID(ctx, id)
}

func (svc *service) UpdateBatch(ctx context.Context, id string, ub UpdateBatch) (Batch, error) {
	b := Batch{
		ID:        id,
		Name:      ub.Name,
		Year:      ub.Year,
		Division:  ub.Division,
		RollStart: *ub.RollStart,
		RollEnd:   *ub.RollEnd,
		Day:       ub.Day,
		Time:      ub.Time,
		StartDate: ub.StartDate,
		EndDate:   ub.EndDate,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateBatch(ctx, b)
}

func (svc *service) DeleteBatches(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteBatchesByID(ctx, ids)
	return err
}

// ImportReport summarizes a bulk student upload. Valid rows are committed
// even when other rows fail; failures are reported per row.
type ImportReport struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

type RowError struct {
	Row   int    `json:"row"` // 1-based, header excluded
	Error string `json:"error"`
}

// ImportStudentsCSV registers students from CSV content with header
// "rollNumber,name,email,year,division,department".
func (svc *service) ImportStudentsCSV(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport

	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return report, core.NewValidationError(errors.New("empty or unreadable CSV file"))
	}
	if err = checkCSVHeader(header); err != nil {
		return report, err
	}

	for row := 1; ; row++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: row, Error: err.Error()})
			continue
		}

		ns, err := studentFromCSVRecord(record)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: row, Error: err.Error()})
			continue
		}
		if _, err = svc.CreateStudent(ctx, ns); err != nil {
			report.Errors = append(report.Errors, RowError{Row: row, Error: rowErrorText(err)})
			continue
		}
		report.Created++
	}
	return report, nil
}

func checkCSVHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return core.NewValidationError(errors.Errorf("expected CSV header %q", strings.Join(csvHeader, ",")))
	}
	for i, col := range csvHeader {
		if !strings.EqualFold(core.CleanString(header[i]), col) {
			return core.NewValidationError(errors.Errorf("expected CSV header %q", strings.Join(csvHeader, ",")))
		}
	}
	return nil
}

func studentFromCSVRecord(record []string) (NewStudent, error) {
	if len(record) != len(csvHeader) {
		return NewStudent{}, errors.Errorf("expected %d columns, got %d", len(csvHeader), len(record))
	}
	roll, err := strconv.ParseInt(core.CleanString(record[0]), 10, 64)
	if err != nil {
		return NewStudent{}, errors.Errorf("invalid roll number %q", record[0])
	}
	return NewStudent{
		RollNumber: &roll,
		Name:       record[1],
		Email:      record[2],
		Year:       record[3],
		Division:   record[4],
		Department: record[5],
	}, nil
}

// rowErrorText flattens a validation error into one line for the report.
func rowErrorText(err error) string {
	switch vErr := errors.Cause(err).(type) {
	case *core.ValidationError:
		if len(vErr.Fields) > 0 {
			parts := make([]string, 0, len(vErr.Fields))
			for _, f := range vErr.Fields {
				parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Error))
			}
			return strings.Join(parts, "; ")
		}
		return vErr.Error()
	case validator.ValidationErrors:
		parts := make([]string, 0, len(vErr))
		for _, f := range vErr {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field(), f.Tag()))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
