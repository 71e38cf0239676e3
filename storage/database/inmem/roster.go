package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) allStudents() []roster.Student {
	students := make([]roster.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNumber < students[j].RollNumber })
	return students
}

func (repo *rosterRepository) allBatches() []roster.Batch {
	batches := make([]roster.Batch, 0, len(repo.db.batches))
	for _, b := range repo.db.batches {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].RollStart < batches[j].RollStart })
	return batches
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, std roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.students {
		if existing.RollNumber == std.RollNumber {
			return roster.Student{}, roster.ErrRollNumberExists
		}
	}
	std.ID = uuid.New().String()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *rosterRepository) QueryStudents(ctx context.Context, filter *roster.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []roster.Student
	for _, std := range repo.allStudents() {
		if filter != nil {
			if filter.Search != "" && !matchesSearch(filter.Search, std.Name, std.Email, strconv.FormatInt(std.RollNumber, 10)) {
				continue
			}
			if filter.Year != "" && std.Year != filter.Year {
				continue
			}
			if filter.Division != "" && std.Division != filter.Division {
				continue
			}
		}
		students = append(students, std)
	}
	return students, nil
}

func (repo *rosterRepository) QueryStudentsInRange(ctx context.Context, start, end int64, exec ...core.DBExecutor) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []roster.Student
	for _, std := range repo.allStudents() {
		if start <= std.RollNumber && std.RollNumber <= end {
			students = append(students, std)
		}
	}
	return students, nil
}

func (repo *rosterRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return roster.Student{}, roster.ErrNotFound
}

func (repo *rosterRepository) GetStudentByRoll(ctx context.Context, roll int64, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, std := range repo.db.students {
		if std.RollNumber == roll {
			return *std, nil
		}
	}
	return roster.Student{}, roster.ErrNotFound
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, std roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return roster.Student{}, roster.ErrNotFound
	}
	orig.Name = std.Name
	orig.Email = std.Email
	orig.Year = std.Year
	orig.Division = std.Division
	orig.Department = std.Department
	orig.UpdatedAt = std.UpdatedAt
	return *orig, nil
}

func (repo *rosterRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			delete(repo.db.students, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *rosterRepository) CreateBatch(ctx context.Context, b roster.Batch, exec ...core.DBExecutor) (roster.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b.ID = uuid.New().String()
	repo.db.batches[b.ID] = &b
	return b, nil
}

func (repo *rosterRepository) QueryBatches(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]roster.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.allBatches(), nil
}

func (repo *rosterRepository) GetBatchByID(ctx context.Context, id string, exec ...core.DBExecutor) (roster.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return *b, nil
	}
	return roster.Batch{}, roster.ErrBatchNotFound
}

func (repo *rosterRepository) UpdateBatch(ctx context.Context, b roster.Batch, exec ...core.DBExecutor) (roster.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.batches[b.ID]
	if !ok {
		return roster.Batch{}, roster.ErrBatchNotFound
	}
	orig.Name = b.Name
	orig.Year = b.Year
	orig.Division = b.Division
	orig.RollStart = b.RollStart
	orig.RollEnd = b.RollEnd
	orig.Day = b.Day
	orig.Time = b.Time
	orig.StartDate = b.StartDate
	orig.EndDate = b.EndDate
	orig.UpdatedAt = b.UpdatedAt
	return *orig, nil
}

func (repo *rosterRepository) DeleteBatchesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.batches[id]; ok {
			delete(repo.db.batches, id)
			cnt++
		}
	}
	return cnt, nil
}
