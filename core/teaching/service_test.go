package teaching_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core/teaching"
	inmemdb "github.com/trezcool/labtrack/storage/database/inmem"
	testutil "github.com/trezcool/labtrack/tests"
)

func setup(t *testing.T) (teaching.ServiceInterface, teaching.Repository, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.NewDB()
	repo := inmemdb.NewTeachingRepository(db)
	return teaching.NewService(nil, repo, validator.New()), repo, db
}

func Test_service_Authorize(t *testing.T) {
	svc, teachingRepo, db := setup(t)
	rosterRepo := inmemdb.NewRosterRepository(db)
	ctx := context.Background()

	batchA := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	batchB := testutil.CreateBatch(t, rosterRepo, "SE-A2", 23121, 23140)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")

	assigned := testutil.CreateTeacher(t, teachingRepo, "Asha", "")
	retired := testutil.CreateTeacher(t, teachingRepo, "Ravi", "")
	unassigned := testutil.CreateTeacher(t, teachingRepo, "Kiran", "")

	testutil.CreateAssignment(t, teachingRepo, assigned.ID, subj.ID, batchA.ID, true)
	testutil.CreateAssignment(t, teachingRepo, assigned.ID, subj.ID, batchB.ID, true)
	testutil.CreateAssignment(t, teachingRepo, retired.ID, subj.ID, batchA.ID, false)

	tests := []struct {
		name      string
		teacherID string
		roll      int64
		want      bool
	}{
		{name: "range start is inclusive", teacherID: assigned.ID, roll: 23101, want: true},
		{name: "range end is inclusive", teacherID: assigned.ID, roll: 23120, want: true},
		{name: "mid range", teacherID: assigned.ID, roll: 23110, want: true},
		{name: "one below range", teacherID: assigned.ID, roll: 23100, want: false},
		{name: "second batch covers", teacherID: assigned.ID, roll: 23140, want: true},
		{name: "one above all ranges", teacherID: assigned.ID, roll: 23141, want: false},
		{name: "inactive assignment grants nothing", teacherID: retired.ID, roll: 23110, want: false},
		{name: "no assignment", teacherID: unassigned.ID, roll: 23110, want: false},
		{name: "unknown teacher", teacherID: "d7a7a9d2-30a2-4a8b-9f14-9f3f1a2b3c4d", roll: 23110, want: false},
		{name: "empty teacher id", teacherID: "", roll: 23110, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authorize(ctx, tt.teacherID, tt.roll)
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_service_AuthorizeBatch(t *testing.T) {
	svc, teachingRepo, db := setup(t)
	rosterRepo := inmemdb.NewRosterRepository(db)
	ctx := context.Background()

	batchA := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	batchB := testutil.CreateBatch(t, rosterRepo, "SE-A2", 23121, 23140)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")

	tchr := testutil.CreateTeacher(t, teachingRepo, "Asha", "")
	testutil.CreateAssignment(t, teachingRepo, tchr.ID, subj.ID, batchA.ID, true)
	testutil.CreateAssignment(t, teachingRepo, tchr.ID, subj.ID, batchB.ID, false)

	tests := []struct {
		name    string
		batchID string
		want    bool
	}{
		{name: "active assignment", batchID: batchA.ID, want: true},
		{name: "inactive assignment", batchID: batchB.ID, want: false},
		{name: "unknown batch", batchID: "b0a7a9d2-30a2-4a8b-9f14-9f3f1a2b3c4d", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AuthorizeBatch(ctx, tchr.ID, tt.batchID)
			if err != nil {
				t.Fatalf("AuthorizeBatch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AuthorizeBatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_service_Allocate_deactivatesPrevious(t *testing.T) {
	svc, teachingRepo, db := setup(t)
	rosterRepo := inmemdb.NewRosterRepository(db)
	ctx := context.Background()

	batch := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	old := testutil.CreateTeacher(t, teachingRepo, "Asha", "")
	replacement := testutil.CreateTeacher(t, teachingRepo, "Ravi", "")

	if _, err := svc.Allocate(ctx, teaching.NewAssignment{TeacherID: old.ID, SubjectID: subj.ID, BatchID: batch.ID}); err != nil {
		t.Fatalf("Allocate() failed: %v", err)
	}
	if _, err := svc.Allocate(ctx, teaching.NewAssignment{TeacherID: replacement.ID, SubjectID: subj.ID, BatchID: batch.ID}); err != nil {
		t.Fatalf("Allocate() failed: %v", err)
	}

	// the old teacher lost access, the replacement gained it
	if ok, _ := svc.Authorize(ctx, old.ID, 23110); ok {
		t.Error("expected previous assignment to be deactivated")
	}
	if ok, _ := svc.Authorize(ctx, replacement.ID, 23110); !ok {
		t.Error("expected new assignment to grant access")
	}

	// the old assignment is retired, not deleted
	asgs, err := svc.QueryAssignments(ctx, &teaching.AssignmentFilter{TeacherID: old.ID, BatchID: batch.ID})
	if err != nil {
		t.Fatalf("QueryAssignments() failed: %v", err)
	}
	if len(asgs) != 1 {
		t.Fatalf("len(asgs) = %d, want 1", len(asgs))
	}
	if asgs[0].IsActive == nil || *asgs[0].IsActive {
		t.Error("expected retired assignment to be inactive")
	}
}

func Test_service_UpdateAssignment_keepsLinks(t *testing.T) {
	svc, teachingRepo, db := setup(t)
	rosterRepo := inmemdb.NewRosterRepository(db)
	ctx := context.Background()

	batch := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	tchr := testutil.CreateTeacher(t, teachingRepo, "Asha", "")
	asg := testutil.CreateAssignment(t, teachingRepo, tchr.ID, subj.ID, batch.ID, true)

	updated, err := svc.UpdateAssignment(ctx, asg.ID, teaching.UpdateAssignment{AcademicYear: "2026-27"})
	if err != nil {
		t.Fatalf("UpdateAssignment() failed: %v", err)
	}
	if updated.TeacherID != tchr.ID || updated.SubjectID != subj.ID || updated.BatchID != batch.ID {
		t.Errorf("links changed on metadata update: %+v", updated)
	}
	if updated.AcademicYear != "2026-27" {
		t.Errorf("AcademicYear = %q, want 2026-27", updated.AcademicYear)
	}
	if updated.IsActive == nil || !*updated.IsActive {
		t.Errorf("assignment no longer active: %+v", updated)
	}
	if ok, err := svc.Authorize(ctx, tchr.ID, 23110); err != nil || !ok {
		t.Errorf("Authorize() = %v, %v after metadata update; want true", ok, err)
	}

	inactive := false
	updated, err = svc.UpdateAssignment(ctx, asg.ID, teaching.UpdateAssignment{IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateAssignment() failed: %v", err)
	}
	if updated.AcademicYear != "2026-27" || updated.TeacherID != tchr.ID {
		t.Errorf("metadata lost on status change: %+v", updated)
	}
	if ok, _ := svc.Authorize(ctx, tchr.ID, 23110); ok {
		t.Error("Authorize() = true for a deactivated assignment")
	}

	if _, err = svc.UpdateAssignment(ctx, "deadbeef", teaching.UpdateAssignment{}); err != teaching.ErrAssignmentNotFound {
		t.Errorf("err = %v, want ErrAssignmentNotFound", err)
	}
}
