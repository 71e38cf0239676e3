package assessment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/roster"
)

var (
	ErrNotFound  = errors.New("assessment not found")
	ErrForbidden = errors.New("you do not have permission to access assessments for this student")
)

type Repository interface {
	CreateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
	// UpsertAssessment inserts a, or merges its set fields into the existing
	// record for the same (student_roll_no, experiment_no).
	UpsertAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
	GetAssessmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Assessment, error)
	QueryStudentAssessments(ctx context.Context, roll int64, exec ...core.DBExecutor) ([]Assessment, error)
	QueryAssessmentsInRange(ctx context.Context, rollStart, rollEnd int64, exec ...core.DBExecutor) ([]Assessment, error)
	UpdateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
	DeleteAssessmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
}

// StudentGetter is the slice of the roster service needed here.
type StudentGetter interface {
	GetStudentByRoll(ctx context.Context, roll int64) (roster.Student, error)
	GetBatchByID(ctx context.Context, id string) (roster.Batch, error)
}

// Authorizer decides whether a teacher may touch a given roll number.
type Authorizer interface {
	Authorize(ctx context.Context, teacherID string, roll int64) (bool, error)
	AuthorizeBatch(ctx context.Context, teacherID, batchID string) (bool, error)
}

type ServiceInterface interface {
	Save(ctx context.Context, caller core.Caller, input SaveAssessment) (Assessment, error)
	GetByID(ctx context.Context, caller core.Caller, id string) (Assessment, error)
	ListForStudent(ctx context.Context, caller core.Caller, roll int64) ([]Assessment, error)
	ListForBatch(ctx context.Context, caller core.Caller, batchID string) ([]Assessment, error)
	Summary(ctx context.Context, caller core.Caller, roll int64) (PerformanceSummary, error)
	Delete(ctx context.Context, ids ...string) error
}

type service struct {
	db       core.DB
	repo     Repository
	roster   StudentGetter
	auth     Authorizer
	validate *validator.Validate
}

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, rosterSvc StudentGetter, auth Authorizer, validate *validator.Validate) ServiceInterface {
	return &service{
		db:       db,
		repo:     repo,
		roster:   rosterSvc,
		auth:     auth,
		validate: validate,
	}
}

// Save records marks for a student's experiment. The write is attributed to
// the calling teacher regardless of any prior author. When input.ID is set
// the matching record is patched in place; otherwise the record for
// (student_roll_no, experiment_no) is created or merged.
func (svc *service) Save(ctx context.Context, caller core.Caller, input SaveAssessment) (Assessment, error) {
	if err := input.Validate(svc.validate); err != nil {
		return Assessment{}, err
	}
	roll := *input.StudentRollNo

	if _, err := svc.roster.GetStudentByRoll(ctx, roll); err != nil {
		return Assessment{}, err
	}
	if err := svc.authorize(ctx, caller, roll); err != nil {
		return Assessment{}, err
	}

	now := time.Now().UTC()

	if input.ID != "" {
		a, err := svc.repo.GetAssessmentByID(ctx, input.ID)
		if err != nil {
			return Assessment{}, err
		}
		if a.StudentRollNo != roll {
			return Assessment{}, ErrNotFound
		}
		input.apply(&a)
		a.TeacherID = caller.TeacherID
		a.UpdatedAt = now
		return svc.repo.UpdateAssessment(ctx, a)
	}

	a := Assessment{
		StudentRollNo: roll,
		TeacherID:     caller.TeacherID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	input.apply(&a)
	return svc.repo.UpsertAssessment(ctx, a)
}

func (svc *service) GetByID(ctx context.Context, caller core.Caller, id string) (Assessment, error) {
	a, err := svc.repo.GetAssessmentByID(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if err = svc.authorizeRead(ctx, caller, a.StudentRollNo); err != nil {
		return Assessment{}, err
	}
	return a, nil
}

// ListForStudent returns the student's assessments ordered by experiment
// number. Students may only read their own; teachers need an active
// assignment covering the roll number.
func (svc *service) ListForStudent(ctx context.Context, caller core.Caller, roll int64) ([]Assessment, error) {
	if _, err := svc.roster.GetStudentByRoll(ctx, roll); err != nil {
		return nil, err
	}
	if err := svc.authorizeRead(ctx, caller, roll); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudentAssessments(ctx, roll)
}

// ListForBatch returns all assessments for rolls within the batch's range,
// ordered by roll number then experiment number.
func (svc *service) ListForBatch(ctx context.Context, caller core.Caller, batchID string) ([]Assessment, error) {
	b, err := svc.roster.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if caller.IsStudent() {
		return nil, ErrForbidden
	}
	if caller.IsTeacher() {
		ok, err := svc.auth.AuthorizeBatch(ctx, caller.TeacherID, batchID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
	}
	return svc.repo.QueryAssessmentsInRange(ctx, b.RollStart, b.RollEnd)
}

func (svc *service) Summary(ctx context.Context, caller core.Caller, roll int64) (PerformanceSummary, error) {
	asmts, err := svc.ListForStudent(ctx, caller, roll)
	if err != nil {
		return PerformanceSummary{}, err
	}
	sum := PerformanceSummary{StudentRollNo: roll, Experiments: len(asmts)}
	for _, a := range asmts {
		if a.ActualPerformanceDate != nil {
			sum.Performed++
		}
		if a.ActualSubmissionDate != nil {
			sum.Submitted++
		}
		sum.RppTotal += intVal(a.RppMarks)
		sum.SpoTotal += intVal(a.SpoMarks)
		sum.AssignmentTotal += intVal(a.AssignmentMarks)
		sum.FinalAssignmentTotal += intVal(a.FinalAssignmentMarks)
		sum.FinalTotal += intVal(a.FinalMarks)
	}
	return sum, nil
}

// Delete is admin-only maintenance; role gating happens at the transport.
func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteAssessmentsByID(ctx, ids)
}

// authorize gates writes: only teachers author marks, and the teacher needs
// an active assignment covering the roll. Admins manage records through the
// admin surface instead.
func (svc *service) authorize(ctx context.Context, caller core.Caller, roll int64) error {
	if !caller.IsTeacher() {
		return ErrForbidden
	}
	ok, err := svc.auth.Authorize(ctx, caller.TeacherID, roll)
	if err != nil {
		return errors.Wrap(err, "authorizing teacher")
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// authorizeRead widens the write gate: admins read freely and students may
// read their own records.
func (svc *service) authorizeRead(ctx context.Context, caller core.Caller, roll int64) error {
	if caller.IsAdmin() {
		return nil
	}
	if caller.IsStudent() {
		if caller.Roll == roll {
			return nil
		}
		return ErrForbidden
	}
	return svc.authorize(ctx, caller, roll)
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
