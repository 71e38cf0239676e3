package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
	testutil "github.com/trezcool/labtrack/tests"
)

type assessmentFixture struct {
	batch   roster.Batch
	teacher teaching.Teacher
	outcast teaching.Teacher

	adminToken   string
	teacherToken string
	outcastToken string
	studentToken string
}

func setupAssessments(t *testing.T) assessmentFixture {
	t.Helper()
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	teacherUsr := testutil.CreateUser(t, usrRepo, "Asha", "asha", "asha@test.cd", "", core.RoleTeacher, true)
	outcastUsr := testutil.CreateUser(t, usrRepo, "Ravi", "ravi", "ravi@test.cd", "", core.RoleTeacher, true)
	studentUsr := testutil.CreateUser(t, usrRepo, "Kiran", "23110", "kiran@test.cd", "", core.RoleStudent, true)

	batch := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	tchr := testutil.CreateTeacher(t, teachingRepo, "Asha", teacherUsr.ID)
	outcast := testutil.CreateTeacher(t, teachingRepo, "Ravi", outcastUsr.ID)
	testutil.CreateAssignment(t, teachingRepo, tchr.ID, subj.ID, batch.ID, true)

	testutil.CreateStudent(t, rosterRepo, 23110, "Kiran")
	testutil.CreateStudent(t, rosterRepo, 23199, "Dev")

	return assessmentFixture{
		batch:        batch,
		teacher:      tchr,
		outcast:      outcast,
		adminToken:   getToken(t, admin),
		teacherToken: getTeacherToken(t, teacherUsr, tchr.ID),
		outcastToken: getTeacherToken(t, outcastUsr, outcast.ID),
		studentToken: getStudentToken(t, studentUsr, 23110),
	}
}

func saveBody(t *testing.T, roll int64, exp int, marks map[string]int) []byte {
	t.Helper()
	payload := map[string]interface{}{"student_roll_no": roll, "experiment_no": exp}
	for k, v := range marks {
		payload[k] = v
	}
	return marchallObj(t, payload)
}

func Test_assessmentApi_save(t *testing.T) {
	fix := setupAssessments(t)

	tests := []httpTest{
		{
			name: "auth required", body: saveBody(t, 23110, 1, nil),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "students cannot write", token: fix.studentToken, body: saveBody(t, 23110, 1, nil),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "roll outside assigned range", token: fix.teacherToken, body: saveBody(t, 23199, 1, nil),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: assessment.ErrForbidden.Error()}),
		},
		{
			name: "unassigned teacher", token: fix.outcastToken, body: saveBody(t, 23110, 1, nil),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: assessment.ErrForbidden.Error()}),
		},
		{
			name: "unknown student", token: fix.teacherToken, body: saveBody(t, 23105, 1, nil),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "marks out of range", token: fix.teacherToken,
			body:     saveBody(t, 23110, 1, map[string]int{"rpp_marks": 6}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"rpp_marks": "rpp_marks must be 5 or less"}),
		},
		{
			name: "roll required", token: fix.teacherToken,
			body:     marchallObj(t, map[string]int{"experiment_no": 1}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_roll_no": "this field is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/assessments", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("save and merge", func(t *testing.T) {
		body := saveBody(t, 23110, 3, map[string]int{"rpp_marks": 4, "spo_marks": 3})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments", fix.teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var first assessment.Assessment
		if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
			t.Fatal(err)
		}
		if first.TeacherID != fix.teacher.ID {
			t.Errorf("TeacherID = %q, want %q", first.TeacherID, fix.teacher.ID)
		}

		body = saveBody(t, 23110, 3, map[string]int{"rpp_marks": 5, "assignment_marks": 8})
		req, rec = newAuthRequest(http.MethodPost, "/v1/assessments", fix.teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var merged assessment.Assessment
		if err := json.Unmarshal(rec.Body.Bytes(), &merged); err != nil {
			t.Fatal(err)
		}
		if merged.ID != first.ID {
			t.Errorf("expected merge into %q, got %q", first.ID, merged.ID)
		}
		if merged.RppMarks == nil || *merged.RppMarks != 5 {
			t.Errorf("RppMarks = %v, want 5", merged.RppMarks)
		}
		if merged.SpoMarks == nil || *merged.SpoMarks != 3 {
			t.Errorf("SpoMarks = %v, want 3 (kept)", merged.SpoMarks)
		}
	})

	t.Run("admins cannot author marks", func(t *testing.T) {
		body := saveBody(t, 23110, 1, map[string]int{"rpp_marks": 2})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments", fix.adminToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_assessmentApi_reads(t *testing.T) {
	fix := setupAssessments(t)

	// seed a few records through the API
	for exp := 1; exp <= 2; exp++ {
		body := saveBody(t, 23110, exp, map[string]int{"rpp_marks": 4})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments", fix.teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("seeding failed: code = %d, body = %s", rec.Code, rec.Body.String())
		}
	}

	countResults := func(t *testing.T, body []byte) int {
		var asmts []assessment.Assessment
		if err := json.Unmarshal(body, &asmts); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		return len(asmts)
	}

	t.Run("teacher reads student records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/student/23110", fix.teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		if n := countResults(t, rec.Body.Bytes()); n != 2 {
			t.Errorf("len = %d, want 2", n)
		}
	})

	t.Run("student reads own records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/student/23110", fix.studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("student cannot read others", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/student/23199", fix.studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("unassigned teacher denied", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/student/23110", fix.outcastToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("invalid roll param", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/student/lol", fix.teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("batch listing for assigned teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/batch/"+fix.batch.ID, fix.teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		if n := countResults(t, rec.Body.Bytes()); n != 2 {
			t.Errorf("len = %d, want 2", n)
		}
	})

	t.Run("batch listing denied for outsider", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/batch/"+fix.batch.ID, fix.outcastToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("batch listing denied for students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/batch/"+fix.batch.ID, fix.studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}

func Test_assessmentApi_destroy(t *testing.T) {
	fix := setupAssessments(t)

	body := saveBody(t, 23110, 1, map[string]int{"rpp_marks": 4})
	req, rec := newAuthRequest(http.MethodPost, "/v1/assessments", fix.teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("seeding failed: code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var a assessment.Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}

	t.Run("teachers cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/assessments?id="+a.ID, fix.teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/assessments?id="+a.ID, fix.adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %d, want %d", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/assessments/student/23110", fix.adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var left []assessment.Assessment
		if err := json.Unmarshal(rec.Body.Bytes(), &left); err != nil {
			t.Fatal(err)
		}
		if len(left) != 0 {
			t.Errorf("len = %d, want 0", len(left))
		}
	})
}
