package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/user"
	testutil "github.com/trezcool/labtrack/tests"
)

func Test_userApi_login(t *testing.T) {
	resetDB(t)

	usr := testutil.CreateUser(t, usrRepo, "Asha", "asha", "asha@test.cd", "s3cr3t", core.RoleTeacher, true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone", "gone@test.cd", "s3cr3t", core.RoleTeacher, false)

	tests := []httpTest{
		{
			name: "username and password required", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: marchallObj(t, map[string]string{"username": "lol", "password": "s3cr3t"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, map[string]string{"username": usr.Username, "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, map[string]string{"username": "gone", "password": "s3cr3t"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login with username", body: marchallObj(t, map[string]string{"username": usr.Username, "password": "s3cr3t"})},
		{name: "login with email", body: marchallObj(t, map[string]string{"username": usr.Email, "password": "s3cr3t"})},
		{name: "username is case-insensitive", body: marchallObj(t, map[string]string{"username": "ASHA", "password": "s3cr3t"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode >= http.StatusBadRequest {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func Test_userApi_adminGates(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", core.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "23110", "student@test.cd", "", core.RoleStudent, true)

	adminToken := getToken(t, admin)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodGet, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "admin required (teacher)", method: http.MethodGet, path: "/v1/users", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "admin required (student)", method: http.MethodGet, path: "/v1/users", token: studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "admin gets all", method: http.MethodGet, path: "/v1/users", token: adminToken,
			wantData: marchallList(t, admin, teacher, student),
		},
		{
			name: "roles list", method: http.MethodGet, path: "/v1/users/roles", token: adminToken,
			wantData: marchallObj(t, core.AllRoles),
		},
		{
			name: "register is admin-only", method: http.MethodPost, path: "/v1/users/register", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "own detail", method: http.MethodGet, path: "/v1/users/" + teacher.ID, token: teacherToken,
			wantData: marchallObj(t, teacher),
		},
		{
			name: "other's detail hidden", method: http.MethodGet, path: "/v1/users/" + admin.ID, token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "any detail for admin", method: http.MethodGet, path: "/v1/users/" + teacher.ID, token: adminToken,
			wantData: marchallObj(t, teacher),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	adminToken := getToken(t, admin)

	body := marchallObj(t, user.NewUser{
		Name:            "New Teacher",
		Username:        "newteacher",
		Email:           "newteacher@test.cd",
		Password:        "V3ryS3cr3tPwd!",
		PasswordConfirm: "V3ryS3cr3tPwd!",
		Role:            core.RoleTeacher,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if created.Username != "newteacher" || created.Role != core.RoleTeacher {
		t.Errorf("created = %+v", created)
	}

	// duplicate username is rejected
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want %d; body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}
