// Package inmemdb provides map-backed repositories for tests and local
// development. Data does not survive a restart.
package inmemdb

import (
	"sync"

	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
	"github.com/trezcool/labtrack/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users       map[string]*user.User
	students    map[string]*roster.Student
	batches     map[string]*roster.Batch
	subjects    map[string]*teaching.Subject
	teachers    map[string]*teaching.Teacher
	assignments map[string]*teaching.Assignment
	assessments map[string]*assessment.Assessment
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		students:    make(map[string]*roster.Student),
		batches:     make(map[string]*roster.Batch),
		subjects:    make(map[string]*teaching.Subject),
		teachers:    make(map[string]*teaching.Teacher),
		assignments: make(map[string]*teaching.Assignment),
		assessments: make(map[string]*assessment.Assessment),
	}
}

// Reset drops all rows. Handy between test cases.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users = make(map[string]*user.User)
	db.students = make(map[string]*roster.Student)
	db.batches = make(map[string]*roster.Batch)
	db.subjects = make(map[string]*teaching.Subject)
	db.teachers = make(map[string]*teaching.Teacher)
	db.assignments = make(map[string]*teaching.Assignment)
	db.assessments = make(map[string]*assessment.Assessment)
}
