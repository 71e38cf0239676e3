package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
)

type teachingRepository struct {
	db *DB
}

var _ teaching.Repository = (*teachingRepository)(nil)

func NewTeachingRepository(db *DB) *teachingRepository {
	return &teachingRepository{db: db}
}

func (repo *teachingRepository) CreateSubject(ctx context.Context, subj teaching.Subject, exec ...core.DBExecutor) (teaching.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.subjects {
		if existing.Code == subj.Code {
			return teaching.Subject{}, teaching.ErrSubjectCodeExists
		}
	}
	subj.ID = uuid.New().String()
	repo.db.subjects[subj.ID] = &subj
	return subj, nil
}

func (repo *teachingRepository) QuerySubjects(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teaching.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]teaching.Subject, 0, len(repo.db.subjects))
	for _, subj := range repo.db.subjects {
		subjects = append(subjects, *subj)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *teachingRepository) GetSubjectByID(ctx context.Context, id string, exec ...core.DBExecutor) (teaching.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if subj, ok := repo.db.subjects[id]; ok {
		return *subj, nil
	}
	return teaching.Subject{}, teaching.ErrSubjectNotFound
}

func (repo *teachingRepository) UpdateSubject(ctx context.Context, subj teaching.Subject, exec ...core.DBExecutor) (teaching.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.subjects[subj.ID]
	if !ok {
		return teaching.Subject{}, teaching.ErrSubjectNotFound
	}
	for _, existing := range repo.db.subjects {
		if existing.ID != subj.ID && existing.Code == subj.Code {
			return teaching.Subject{}, teaching.ErrSubjectCodeExists
		}
	}
	orig.Name = subj.Name
	orig.Code = subj.Code
	orig.Description = subj.Description
	orig.UpdatedAt = subj.UpdatedAt
	return *orig, nil
}

func (repo *teachingRepository) DeleteSubjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.subjects[id]; ok {
			delete(repo.db.subjects, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *teachingRepository) CreateTeacher(ctx context.Context, tchr teaching.Teacher, exec ...core.DBExecutor) (teaching.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tchr.ID = uuid.New().String()
	repo.db.teachers[tchr.ID] = &tchr
	return tchr, nil
}

func (repo *teachingRepository) QueryTeachers(ctx context.Context, filter *teaching.TeacherFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teaching.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var teachers []teaching.Teacher
	for _, tchr := range repo.db.teachers {
		if filter != nil {
			if filter.Department != "" && tchr.Department != filter.Department {
				continue
			}
			if filter.IsActive != nil && (tchr.IsActive == nil || *tchr.IsActive != *filter.IsActive) {
				continue
			}
		}
		teachers = append(teachers, *tchr)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (repo *teachingRepository) GetTeacherByID(ctx context.Context, id string, exec ...core.DBExecutor) (teaching.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tchr, ok := repo.db.teachers[id]; ok {
		return *tchr, nil
	}
	return teaching.Teacher{}, teaching.ErrTeacherNotFound
}

func (repo *teachingRepository) GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (teaching.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, tchr := range repo.db.teachers {
		if tchr.UserID == userID {
			return *tchr, nil
		}
	}
	return teaching.Teacher{}, teaching.ErrTeacherNotFound
}

func (repo *teachingRepository) UpdateTeacher(ctx context.Context, tchr teaching.Teacher, exec ...core.DBExecutor) (teaching.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.teachers[tchr.ID]
	if !ok {
		return teaching.Teacher{}, teaching.ErrTeacherNotFound
	}
	orig.UserID = tchr.UserID
	orig.Name = tchr.Name
	orig.Email = tchr.Email
	orig.Department = tchr.Department
	if tchr.IsActive != nil {
		orig.IsActive = tchr.IsActive
	}
	orig.UpdatedAt = tchr.UpdatedAt
	return *orig, nil
}

func (repo *teachingRepository) DeleteTeachersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.teachers[id]; ok {
			delete(repo.db.teachers, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *teachingRepository) CreateAssignment(ctx context.Context, asg teaching.Assignment, exec ...core.DBExecutor) (teaching.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asg.ID = uuid.New().String()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *teachingRepository) QueryAssignments(ctx context.Context, filter *teaching.AssignmentFilter, exec ...core.DBExecutor) ([]teaching.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var assignments []teaching.Assignment
	for _, asg := range repo.db.assignments {
		if filter != nil {
			if filter.TeacherID != "" && asg.TeacherID != filter.TeacherID {
				continue
			}
			if filter.SubjectID != "" && asg.SubjectID != filter.SubjectID {
				continue
			}
			if filter.BatchID != "" && asg.BatchID != filter.BatchID {
				continue
			}
			if filter.AcademicYear != "" && asg.AcademicYear != filter.AcademicYear {
				continue
			}
			if filter.IsActive != nil && (asg.IsActive == nil || *asg.IsActive != *filter.IsActive) {
				continue
			}
		}
		assignments = append(assignments, *asg)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.Before(assignments[j].CreatedAt) })
	return assignments, nil
}

func (repo *teachingRepository) GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (teaching.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return teaching.Assignment{}, teaching.ErrAssignmentNotFound
}

func (repo *teachingRepository) UpdateAssignment(ctx context.Context, asg teaching.Assignment, exec ...core.DBExecutor) (teaching.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignments[asg.ID]
	if !ok {
		return teaching.Assignment{}, teaching.ErrAssignmentNotFound
	}
	orig.TeacherID = asg.TeacherID
	orig.SubjectID = asg.SubjectID
	orig.BatchID = asg.BatchID
	orig.Division = asg.Division
	orig.AcademicYear = asg.AcademicYear
	if asg.IsActive != nil {
		orig.IsActive = asg.IsActive
	}
	orig.UpdatedAt = asg.UpdatedAt
	return *orig, nil
}

func (repo *teachingRepository) DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.assignments[id]; ok {
			delete(repo.db.assignments, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *teachingRepository) QueryActiveTeacherBatches(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]roster.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]struct{})
	var batches []roster.Batch
	for _, asg := range repo.db.assignments {
		if asg.TeacherID != teacherID || asg.IsActive == nil || !*asg.IsActive {
			continue
		}
		if _, ok := seen[asg.BatchID]; ok {
			continue
		}
		seen[asg.BatchID] = struct{}{}
		if b, ok := repo.db.batches[asg.BatchID]; ok {
			batches = append(batches, *b)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].RollStart < batches[j].RollStart })
	return batches, nil
}
