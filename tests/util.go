package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
	"github.com/trezcool/labtrack/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo roster.Repository, roll int64, name string) roster.Student {
	t.Helper()

	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), roster.Student{
		RollNumber: roll,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateBatch(t *testing.T, repo roster.Repository, name string, rollStart, rollEnd int64) roster.Batch {
	t.Helper()

	now := time.Now().UTC()
	b, err := repo.CreateBatch(context.Background(), roster.Batch{
		Name:      name,
		RollStart: rollStart,
		RollEnd:   rollEnd,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	return b
}

func CreateSubject(t *testing.T, repo teaching.Repository, name, code string) teaching.Subject {
	t.Helper()

	now := time.Now().UTC()
	subj, err := repo.CreateSubject(context.Background(), teaching.Subject{
		Name:      name,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return subj
}

func CreateTeacher(t *testing.T, repo teaching.Repository, name, userID string) teaching.Teacher {
	t.Helper()

	now := time.Now().UTC()
	tchr := teaching.Teacher{
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tchr.SetActive(true)
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateAssignment(
	t *testing.T,
	repo teaching.Repository,
	teacherID, subjectID, batchID string,
	isActive bool,
) teaching.Assignment {
	t.Helper()

	now := time.Now().UTC()
	asg := teaching.Assignment{
		TeacherID: teacherID,
		SubjectID: subjectID,
		BatchID:   batchID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	asg.SetActive(isActive)
	asg, err := repo.CreateAssignment(context.Background(), asg)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}

func CreateAssessment(
	t *testing.T,
	repo assessment.Repository,
	roll int64,
	experiment int,
	teacherID string,
) assessment.Assessment {
	t.Helper()

	now := time.Now().UTC()
	a, err := repo.CreateAssessment(context.Background(), assessment.Assessment{
		StudentRollNo: roll,
		ExperimentNo:  experiment,
		TeacherID:     teacherID,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return a
}

// Caller helpers.

func AdminCaller() core.Caller {
	return core.Caller{UserID: "admin-id", Role: core.RoleAdmin}
}

func TeacherCaller(teacherID string) core.Caller {
	return core.Caller{UserID: "user-" + teacherID, Role: core.RoleTeacher, TeacherID: teacherID}
}

func StudentCaller(roll int64) core.Caller {
	return core.Caller{UserID: "student-id", Role: core.RoleStudent, Roll: roll}
}

func IntPtr(v int) *int       { return &v }
func Int64Ptr(v int64) *int64 { return &v }
