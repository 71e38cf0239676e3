package teaching

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/roster"
)

var (
	// errors
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubjectCodeExists  = errors.New("a subject with this code already exists")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, subj Subject, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateTeacher(ctx context.Context, tchr Teacher, exec ...core.DBExecutor) (Teacher, error)
		QueryTeachers(ctx context.Context, filter *TeacherFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		GetTeacherByID(ctx context.Context, id string, exec ...core.DBExecutor) (Teacher, error)
		GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Teacher, error)
		UpdateTeacher(ctx context.Context, tchr Teacher, exec ...core.DBExecutor) (Teacher, error)
		DeleteTeachersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		QueryAssignments(ctx context.Context, filter *AssignmentFilter, exec ...core.DBExecutor) ([]Assignment, error)
		GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		// QueryActiveTeacherBatches returns the batches joined to the
		// teacher's active assignments.
		QueryActiveTeacherBatches(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]roster.Batch, error)
	}

	ServiceInterface interface {
		// Authorize decides whether the teacher may read/write assessment
		// data of the student with the given roll number: true iff any of the
		// teacher's active batch assignments covers the roll number.
		// Every call re-queries current state; there is no caching.
		Authorize(ctx context.Context, teacherID string, roll int64) (bool, error)
		// AuthorizeBatch decides whether the teacher holds an active
		// assignment on the given batch.
		AuthorizeBatch(ctx context.Context, teacherID, batchID string) (bool, error)
		ActiveTeacherBatches(ctx context.Context, teacherID string) ([]roster.Batch, error)

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		DeleteSubjects(ctx context.Context, ids ...string) error

		CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error)
		QueryTeachers(ctx context.Context, filter *TeacherFilter) ([]Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error)
		UpdateTeacher(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error)
		DeleteTeachers(ctx context.Context, ids ...string) error

		Allocate(ctx context.Context, na NewAssignment) (Assignment, error)
		QueryAssignments(ctx context.Context, filter *AssignmentFilter) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error)
		DeactivateAssignment(ctx context.Context, id string) (Assignment, error)
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

func (svc *service) Authorize(ctx context.Context, teacherID string, roll int64) (bool, error) {
	if teacherID == "" {
		return false, nil
	}
	batches, err := svc.repo.QueryActiveTeacherBatches(ctx, teacherID)
	if err != nil {
		return false, errors.Wrap(err, "querying teacher batches")
	}
	for _, b := range batches {
		if b.Contains(roll) {
			return true, nil
		}
	}
	return false, nil
}

func (svc *service) AuthorizeBatch(ctx context.Context, teacherID, batchID string) (bool, error) {
	if teacherID == "" {
		return false, nil
	}
	active := true
	asgs, err := svc.repo.QueryAssignments(ctx, &AssignmentFilter{TeacherID: teacherID, BatchID: batchID, IsActive: &active})
	if err != nil {
		return false, errors.Wrap(err, "querying assignments")
	}
	return len(asgs) > 0, nil
}

func (svc *service) ActiveTeacherBatches(ctx context.Context, teacherID string) ([]roster.Batch, error) {
	return svc.repo.QueryActiveTeacherBatches(ctx, teacherID)
}

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Subject{}, err
	}
	now := time.Now().UTC()
	subj := Subject{
		Name:        ns.Name,
		Code:        ns.Code,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	subj, err := svc.repo.CreateSubject(ctx, subj)
	if err != nil {
		if errors.Cause(err) == ErrSubjectCodeExists {
			return Subject{}, core.NewFieldError("code", err)
		}
		return Subject{}, err
	}
	return subj, nil
}

func (svc *service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, []core.DBOrdering{{Field: "code", Ascending: true}})
}

func (svc *service) GetSubjectByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *service) UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	subj := Subject{
		ID:          id,
		Name:        us.Name,
		Code:        us.Code,
		Description: us.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateSubject(ctx, subj)
}

func (svc *service) DeleteSubjects(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteSubjectsByID(ctx, ids)
	return err
}

func (svc *service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Teacher{}, err
	}
	now := time.Now().UTC()
	tchr := Teacher{
		UserID:     nt.UserID,
		Name:       nt.Name,
		Email:      nt.Email,
		Department: nt.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tchr.SetActive(true)
	return svc.repo.CreateTeacher(ctx, tchr)
}

func (svc *service) QueryTeachers(ctx context.Context, filter *TeacherFilter) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *service) GetTeacherByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *service) GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.GetTeacherByUserID(ctx, userID)
}

func (svc *service) UpdateTeacher(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error) {
	tchr := Teacher{
		ID:         id,
		Name:       ut.Name,
		Email:      ut.Email,
		Department: ut.Department,
		IsActive:   ut.IsActive,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateTeacher(ctx, tchr)
}

func (svc *service) DeleteTeachers(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteTeachersByID(ctx, ids)
	return err
}

// Allocate creates an active Assignment. Any previous active assignment for
// the same (subject, batch) is deactivated first so a batch has at most one
// active teacher per subject.
func (svc *service) Allocate(ctx context.Context, na NewAssignment) (Assignment, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}

	active := true
	prev, err := svc.repo.QueryAssignments(ctx, &AssignmentFilter{SubjectID: na.SubjectID, BatchID: na.BatchID, IsActive: &active})
	if err != nil {
		return Assignment{}, errors.Wrap(err, "querying previous assignments")
	}
	for _, p := range prev {
		p.SetActive(false)
		p.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateAssignment(ctx, p); err != nil {
			return Assignment{}, errors.Wrap(err, "deactivating previous assignment")
		}
	}

	now := time.Now().UTC()
	asg := Assignment{
		TeacherID:    na.TeacherID,
		SubjectID:    na.SubjectID,
		BatchID:      na.BatchID,
		Division:     na.Division,
		AcademicYear: na.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	asg.SetActive(true)
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) QueryAssignments(ctx context.Context, filter *AssignmentFilter) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter)
}

// UpdateAssignment patches an allocation's metadata. The teacher/subject/
// batch links are immutable here; reallocating goes through Allocate.
func (svc *service) UpdateAssignment(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if div := core.CleanString(ua.Division); div != "" {
		asg.Division = div
	}
	if year := core.CleanString(ua.AcademicYear); year != "" {
		asg.AcademicYear = year
	}
	if ua.IsActive != nil {
		asg.IsActive = ua.IsActive
	}
	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

// DeactivateAssignment retires an allocation; assignments are never deleted
// so past authorship stays attributable.
func (svc *service) DeactivateAssignment(ctx context.Context, id string) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	asg.SetActive(false)
	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}
