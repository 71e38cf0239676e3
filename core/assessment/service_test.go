package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
	inmemdb "github.com/trezcool/labtrack/storage/database/inmem"
	testutil "github.com/trezcool/labtrack/tests"
)

type fixture struct {
	svc        assessment.ServiceInterface
	repo       assessment.Repository
	rosterRepo roster.Repository
	batch      roster.Batch
	teacher teaching.Teacher
	outcast teaching.Teacher // no assignment
	student roster.Student
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := inmemdb.NewDB()
	rosterRepo := inmemdb.NewRosterRepository(db)
	teachingRepo := inmemdb.NewTeachingRepository(db)
	repo := inmemdb.NewAssessmentRepository(db)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	assessment.InitValidators(validate, translator)

	rosterSvc := roster.NewService(nil, rosterRepo, validate)
	teachingSvc := teaching.NewService(nil, teachingRepo, validate)
	svc := assessment.NewService(nil, repo, rosterSvc, teachingSvc, validate)

	batch := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	tchr := testutil.CreateTeacher(t, teachingRepo, "Asha", "")
	outcast := testutil.CreateTeacher(t, teachingRepo, "Ravi", "")
	testutil.CreateAssignment(t, teachingRepo, tchr.ID, subj.ID, batch.ID, true)

	std := testutil.CreateStudent(t, rosterRepo, 23110, "Kiran")
	testutil.CreateStudent(t, rosterRepo, 23199, "Dev") // not covered by the batch

	return fixture{svc: svc, repo: repo, rosterRepo: rosterRepo, batch: batch, teacher: tchr, outcast: outcast, student: std}
}

func Test_service_Save_validation(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	caller := testutil.TeacherCaller(fix.teacher.ID)

	tests := []struct {
		name    string
		input   assessment.SaveAssessment
		wantErr bool
	}{
		{
			name:    "roll number required",
			input:   assessment.SaveAssessment{ExperimentNo: testutil.IntPtr(1)},
			wantErr: true,
		},
		{
			name:    "experiment required",
			input:   assessment.SaveAssessment{StudentRollNo: testutil.Int64Ptr(23110)},
			wantErr: true,
		},
		{
			name:  "experiment zero is valid",
			input: assessment.SaveAssessment{StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(0)},
		},
		{
			name:    "experiment above limit",
			input:   assessment.SaveAssessment{StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(13)},
			wantErr: true,
		},
		{
			name: "rpp at max",
			input: assessment.SaveAssessment{
				StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(1),
				RppMarks: testutil.IntPtr(5),
			},
		},
		{
			name: "rpp above max",
			input: assessment.SaveAssessment{
				StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(1),
				RppMarks: testutil.IntPtr(6),
			},
			wantErr: true,
		},
		{
			name: "negative marks",
			input: assessment.SaveAssessment{
				StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(1),
				TestMarks: testutil.IntPtr(-1),
			},
			wantErr: true,
		},
		{
			name: "final assignment at max",
			input: assessment.SaveAssessment{
				StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(1),
				FinalAssignmentMarks: testutil.IntPtr(60),
			},
		},
		{
			name: "unit test above max",
			input: assessment.SaveAssessment{
				StudentRollNo: testutil.Int64Ptr(23110), ExperimentNo: testutil.IntPtr(1),
				UnitTest2Marks: testutil.IntPtr(31),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fix.svc.Save(ctx, caller, tt.input)
			if tt.wantErr && err == nil {
				t.Error("Save() expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Save() unexpected error = %v", err)
			}
		})
	}
}

func Test_service_Save_authorization(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	input := assessment.SaveAssessment{
		StudentRollNo: testutil.Int64Ptr(23199), // outside the batch range
		ExperimentNo:  testutil.IntPtr(1),
		RppMarks:      testutil.IntPtr(3),
	}

	_, err := fix.svc.Save(ctx, testutil.TeacherCaller(fix.teacher.ID), input)
	if errors.Cause(err) != assessment.ErrForbidden {
		t.Errorf("Save() error = %v, want %v", err, assessment.ErrForbidden)
	}

	// the rejected write must leave no record behind
	asmts, err := fix.repo.QueryStudentAssessments(ctx, 23199)
	if err != nil {
		t.Fatalf("QueryStudentAssessments() failed: %v", err)
	}
	if len(asmts) != 0 {
		t.Errorf("len(asmts) = %d, want 0", len(asmts))
	}

	// an unassigned teacher gets nothing, even for in-range rolls
	input.StudentRollNo = testutil.Int64Ptr(23110)
	if _, err = fix.svc.Save(ctx, testutil.TeacherCaller(fix.outcast.ID), input); errors.Cause(err) != assessment.ErrForbidden {
		t.Errorf("Save() error = %v, want %v", err, assessment.ErrForbidden)
	}

	// marks are authored by teachers only; admins manage records elsewhere
	input.StudentRollNo = testutil.Int64Ptr(23110)
	if _, err = fix.svc.Save(ctx, testutil.AdminCaller(), input); errors.Cause(err) != assessment.ErrForbidden {
		t.Errorf("Save() error = %v, want %v", err, assessment.ErrForbidden)
	}
	asmts, err = fix.repo.QueryStudentAssessments(ctx, 23110)
	if err != nil {
		t.Fatalf("QueryStudentAssessments() failed: %v", err)
	}
	if len(asmts) != 0 {
		t.Errorf("len(asmts) = %d, want 0", len(asmts))
	}
}

func Test_service_Save_unknownStudent(t *testing.T) {
	fix := setup(t)

	input := assessment.SaveAssessment{
		StudentRollNo: testutil.Int64Ptr(11111),
		ExperimentNo:  testutil.IntPtr(1),
	}
	_, err := fix.svc.Save(context.Background(), testutil.AdminCaller(), input)
	if errors.Cause(err) != roster.ErrNotFound {
		t.Errorf("Save() error = %v, want %v", err, roster.ErrNotFound)
	}
}

func Test_service_Save_merge(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	caller := testutil.TeacherCaller(fix.teacher.ID)

	performed := time.Date(2026, time.February, 10, 14, 0, 0, 0, time.UTC)

	first := assessment.SaveAssessment{
		StudentRollNo:         testutil.Int64Ptr(23110),
		ExperimentNo:          testutil.IntPtr(3),
		ActualPerformanceDate: &performed,
		RppMarks:              testutil.IntPtr(4),
		SpoMarks:              testutil.IntPtr(3),
	}
	a1, err := fix.svc.Save(ctx, caller, first)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// a second write for the same (student, experiment) merges into the same
	// record: set fields win, omitted fields keep their previous value
	second := assessment.SaveAssessment{
		StudentRollNo:   testutil.Int64Ptr(23110),
		ExperimentNo:    testutil.IntPtr(3),
		RppMarks:        testutil.IntPtr(5),
		AssignmentMarks: testutil.IntPtr(8),
	}
	a2, err := fix.svc.Save(ctx, caller, second)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if a2.ID != a1.ID {
		t.Errorf("expected merge into existing record; got new id %q", a2.ID)
	}
	if a2.RppMarks == nil || *a2.RppMarks != 5 {
		t.Errorf("RppMarks = %v, want 5", a2.RppMarks)
	}
	if a2.SpoMarks == nil || *a2.SpoMarks != 3 {
		t.Errorf("SpoMarks = %v, want 3 (kept)", a2.SpoMarks)
	}
	if a2.AssignmentMarks == nil || *a2.AssignmentMarks != 8 {
		t.Errorf("AssignmentMarks = %v, want 8", a2.AssignmentMarks)
	}
	if a2.ActualPerformanceDate == nil || !a2.ActualPerformanceDate.Equal(performed) {
		t.Errorf("ActualPerformanceDate = %v, want %v (kept)", a2.ActualPerformanceDate, performed)
	}

	asmts, err := fix.repo.QueryStudentAssessments(ctx, 23110)
	if err != nil {
		t.Fatalf("QueryStudentAssessments() failed: %v", err)
	}
	if len(asmts) != 1 {
		t.Errorf("len(asmts) = %d, want 1", len(asmts))
	}
}

func Test_service_Save_byID(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	caller := testutil.TeacherCaller(fix.teacher.ID)

	a, err := fix.svc.Save(ctx, caller, assessment.SaveAssessment{
		StudentRollNo: testutil.Int64Ptr(23110),
		ExperimentNo:  testutil.IntPtr(2),
		RppMarks:      testutil.IntPtr(3),
	})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	patched, err := fix.svc.Save(ctx, caller, assessment.SaveAssessment{
		ID:            a.ID,
		StudentRollNo: testutil.Int64Ptr(23110),
		ExperimentNo:  testutil.IntPtr(2),
		SpoMarks:      testutil.IntPtr(4),
	})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if patched.ID != a.ID {
		t.Errorf("ID = %q, want %q", patched.ID, a.ID)
	}
	if patched.RppMarks == nil || *patched.RppMarks != 3 {
		t.Errorf("RppMarks = %v, want 3 (kept)", patched.RppMarks)
	}
	if patched.SpoMarks == nil || *patched.SpoMarks != 4 {
		t.Errorf("SpoMarks = %v, want 4", patched.SpoMarks)
	}

	// an ID belonging to another student's record is treated as missing
	testutil.CreateStudent(t, fix.rosterRepo, 23111, "Dev")
	_, err = fix.svc.Save(ctx, caller, assessment.SaveAssessment{
		ID:            a.ID,
		StudentRollNo: testutil.Int64Ptr(23111),
		ExperimentNo:  testutil.IntPtr(2),
	})
	if errors.Cause(err) != assessment.ErrNotFound {
		t.Errorf("Save() error = %v, want %v", err, assessment.ErrNotFound)
	}
}

func Test_service_reads(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	teacher := testutil.TeacherCaller(fix.teacher.ID)

	performed := time.Date(2026, time.February, 10, 14, 0, 0, 0, time.UTC)
	submitted := performed.Add(7 * 24 * time.Hour)

	for exp := 1; exp <= 3; exp++ {
		input := assessment.SaveAssessment{
			StudentRollNo: testutil.Int64Ptr(23110),
			ExperimentNo:  testutil.IntPtr(exp),
			RppMarks:      testutil.IntPtr(4),
			SpoMarks:      testutil.IntPtr(3),
		}
		if exp < 3 {
			input.ActualPerformanceDate = &performed
		}
		if exp == 1 {
			input.ActualSubmissionDate = &submitted
		}
		if _, err := fix.svc.Save(ctx, teacher, input); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}

	t.Run("student reads own records", func(t *testing.T) {
		asmts, err := fix.svc.ListForStudent(ctx, testutil.StudentCaller(23110), 23110)
		if err != nil {
			t.Fatalf("ListForStudent() failed: %v", err)
		}
		if len(asmts) != 3 {
			t.Errorf("len(asmts) = %d, want 3", len(asmts))
		}
	})

	t.Run("student cannot read others", func(t *testing.T) {
		_, err := fix.svc.ListForStudent(ctx, testutil.StudentCaller(23199), 23110)
		if errors.Cause(err) != assessment.ErrForbidden {
			t.Errorf("ListForStudent() error = %v, want %v", err, assessment.ErrForbidden)
		}
	})

	t.Run("batch listing", func(t *testing.T) {
		asmts, err := fix.svc.ListForBatch(ctx, teacher, fix.batch.ID)
		if err != nil {
			t.Fatalf("ListForBatch() failed: %v", err)
		}
		if len(asmts) != 3 {
			t.Errorf("len(asmts) = %d, want 3", len(asmts))
		}
	})

	t.Run("batch listing forbidden for outsider", func(t *testing.T) {
		_, err := fix.svc.ListForBatch(ctx, testutil.TeacherCaller(fix.outcast.ID), fix.batch.ID)
		if errors.Cause(err) != assessment.ErrForbidden {
			t.Errorf("ListForBatch() error = %v, want %v", err, assessment.ErrForbidden)
		}
	})

	t.Run("summary", func(t *testing.T) {
		sum, err := fix.svc.Summary(ctx, testutil.StudentCaller(23110), 23110)
		if err != nil {
			t.Fatalf("Summary() failed: %v", err)
		}
		want := assessment.PerformanceSummary{
			StudentRollNo: 23110,
			Experiments:   3,
			Performed:     2,
			Submitted:     1,
			RppTotal:      12,
			SpoTotal:      9,
		}
		if sum != want {
			t.Errorf("Summary() = %+v, want %+v", sum, want)
		}
	})
}
