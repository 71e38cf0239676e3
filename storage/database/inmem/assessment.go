package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = uuid.New().String()
	repo.db.assessments[a.ID] = &a
	return a, nil
}

func (repo *assessmentRepository) UpsertAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.assessments {
		if existing.StudentRollNo == a.StudentRollNo && existing.ExperimentNo == a.ExperimentNo {
			merge(existing, a)
			return *existing, nil
		}
	}
	a.ID = uuid.New().String()
	repo.db.assessments[a.ID] = &a
	return a, nil
}

// merge applies a's set fields onto the existing record, mirroring the
// COALESCE semantics of the SQL upsert.
func merge(orig *assessment.Assessment, a assessment.Assessment) {
	orig.TeacherID = a.TeacherID
	orig.UpdatedAt = a.UpdatedAt
	if a.ScheduledPerformanceDate != nil {
		orig.ScheduledPerformanceDate = a.ScheduledPerformanceDate
	}
	if a.ActualPerformanceDate != nil {
		orig.ActualPerformanceDate = a.ActualPerformanceDate
	}
	if a.ScheduledSubmissionDate != nil {
		orig.ScheduledSubmissionDate = a.ScheduledSubmissionDate
	}
	if a.ActualSubmissionDate != nil {
		orig.ActualSubmissionDate = a.ActualSubmissionDate
	}
	if a.RppMarks != nil {
		orig.RppMarks = a.RppMarks
	}
	if a.SpoMarks != nil {
		orig.SpoMarks = a.SpoMarks
	}
	if a.AssignmentMarks != nil {
		orig.AssignmentMarks = a.AssignmentMarks
	}
	if a.FinalAssignmentMarks != nil {
		orig.FinalAssignmentMarks = a.FinalAssignmentMarks
	}
	if a.TestMarks != nil {
		orig.TestMarks = a.TestMarks
	}
	if a.TheoryAttendanceMarks != nil {
		orig.TheoryAttendanceMarks = a.TheoryAttendanceMarks
	}
	if a.UnitTest1Marks != nil {
		orig.UnitTest1Marks = a.UnitTest1Marks
	}
	if a.UnitTest2Marks != nil {
		orig.UnitTest2Marks = a.UnitTest2Marks
	}
	if a.UnitTest3Marks != nil {
		orig.UnitTest3Marks = a.UnitTest3Marks
	}
	if a.ConvertedUnitTestMarks != nil {
		orig.ConvertedUnitTestMarks = a.ConvertedUnitTestMarks
	}
	if a.FinalMarks != nil {
		orig.FinalMarks = a.FinalMarks
	}
}

func (repo *assessmentRepository) GetAssessmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assessments[id]; ok {
		return *a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) QueryStudentAssessments(ctx context.Context, roll int64, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var asmts []assessment.Assessment
	for _, a := range repo.db.assessments {
		if a.StudentRollNo == roll {
			asmts = append(asmts, *a)
		}
	}
	sort.Slice(asmts, func(i, j int) bool { return asmts[i].ExperimentNo < asmts[j].ExperimentNo })
	return asmts, nil
}

func (repo *assessmentRepository) QueryAssessmentsInRange(ctx context.Context, rollStart, rollEnd int64, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var asmts []assessment.Assessment
	for _, a := range repo.db.assessments {
		if rollStart <= a.StudentRollNo && a.StudentRollNo <= rollEnd {
			asmts = append(asmts, *a)
		}
	}
	sort.Slice(asmts, func(i, j int) bool {
		if asmts[i].StudentRollNo != asmts[j].StudentRollNo {
			return asmts[i].StudentRollNo < asmts[j].StudentRollNo
		}
		return asmts[i].ExperimentNo < asmts[j].ExperimentNo
	})
	return asmts, nil
}

func (repo *assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assessments[a.ID]; !ok {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	repo.db.assessments[a.ID] = &a
	return a, nil
}

func (repo *assessmentRepository) DeleteAssessmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.assessments, id)
	}
	return nil
}
