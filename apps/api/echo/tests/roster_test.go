package tests

import (
	"net/http"
	"testing"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
	testutil "github.com/trezcool/labtrack/tests"
)

func Test_rosterApi_batchStudents(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	ashaUsr := testutil.CreateUser(t, usrRepo, "Asha", "asha", "asha@test.cd", "", core.RoleTeacher, true)
	raviUsr := testutil.CreateUser(t, usrRepo, "Ravi", "ravi", "ravi@test.cd", "", core.RoleTeacher, true)
	studentUsr := testutil.CreateUser(t, usrRepo, "Kiran", "23110", "kiran@test.cd", "", core.RoleStudent, true)

	batch := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	asha := testutil.CreateTeacher(t, teachingRepo, "Asha", ashaUsr.ID)
	ravi := testutil.CreateTeacher(t, teachingRepo, "Ravi", raviUsr.ID)
	testutil.CreateAssignment(t, teachingRepo, asha.ID, subj.ID, batch.ID, true)

	s1 := testutil.CreateStudent(t, rosterRepo, 23105, "Kiran")
	s2 := testutil.CreateStudent(t, rosterRepo, 23110, "Meera")
	testutil.CreateStudent(t, rosterRepo, 23199, "Dev") // outside the batch

	path := "/v1/batches/" + batch.ID + "/students"
	tests := []httpTest{
		{
			name: "auth required", path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "students denied", path: path, token: getStudentToken(t, studentUsr, 23110),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "unassigned teacher denied", path: path, token: getTeacherToken(t, raviUsr, ravi.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "assigned teacher lists roster", path: path, token: getTeacherToken(t, ashaUsr, asha.ID),
			wantData: marchallList(t, s1, s2),
		},
		{
			name: "admin lists any roster", path: path, token: getToken(t, admin),
			wantData: marchallList(t, s1, s2),
		},
		{
			name: "unknown batch", path: "/v1/batches/deadbeef/students", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_rosterApi_studentPortal(t *testing.T) {
	resetDB(t)

	ashaUsr := testutil.CreateUser(t, usrRepo, "Asha", "asha", "asha@test.cd", "", core.RoleTeacher, true)
	studentUsr := testutil.CreateUser(t, usrRepo, "Kiran", "23110", "kiran@test.cd", "", core.RoleStudent, true)

	batch := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	asha := testutil.CreateTeacher(t, teachingRepo, "Asha", ashaUsr.ID)
	testutil.CreateAssignment(t, teachingRepo, asha.ID, subj.ID, batch.ID, true)
	std := testutil.CreateStudent(t, rosterRepo, 23110, "Kiran")

	testutil.CreateAssessment(t, assessmentRepo, 23110, 1, asha.ID)
	testutil.CreateAssessment(t, assessmentRepo, 23110, 2, asha.ID)

	studentToken := getStudentToken(t, studentUsr, 23110)
	teacherToken := getTeacherToken(t, ashaUsr, asha.ID)

	wantSummary := assessment.PerformanceSummary{
		StudentRollNo: 23110,
		Experiments:   2,
	}

	tests := []httpTest{
		{
			name: "own profile", path: "/v1/students/me", token: studentToken,
			wantData: marchallObj(t, std),
		},
		{
			name: "teachers have no student profile", path: "/v1/students/me", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "own performance", path: "/v1/students/performance", token: studentToken,
			wantData: marchallObj(t, wantSummary),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_rosterApi_teacherPortal(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	ashaUsr := testutil.CreateUser(t, usrRepo, "Asha", "asha", "asha@test.cd", "", core.RoleTeacher, true)

	b1 := testutil.CreateBatch(t, rosterRepo, "SE-A1", 23101, 23120)
	b2 := testutil.CreateBatch(t, rosterRepo, "SE-A2", 23121, 23140)
	subj := testutil.CreateSubject(t, teachingRepo, "Data Structures", "CS301")
	asha := testutil.CreateTeacher(t, teachingRepo, "Asha", ashaUsr.ID)
	testutil.CreateAssignment(t, teachingRepo, asha.ID, subj.ID, b1.ID, true)
	testutil.CreateAssignment(t, teachingRepo, asha.ID, subj.ID, b2.ID, false) // retired

	teacherToken := getTeacherToken(t, ashaUsr, asha.ID)

	tests := []httpTest{
		{
			name: "own profile", path: "/v1/teachers/me", token: teacherToken,
			wantData: marchallObj(t, asha),
		},
		{
			name: "admin has no teacher profile", path: "/v1/teachers/me", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "active batches only", path: "/v1/teachers/batches", token: teacherToken,
			wantData: marchallList(t, b1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
