package core

// Roles. Every account holds exactly one.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

// Caller identifies the authenticated principal a request acts as.
// It is passed explicitly into domain operations that need to know who is
// acting; handlers build it from the verified token claims.
type Caller struct {
	UserID    string
	Role      string
	TeacherID string // teacher profile ID; set iff Role == RoleTeacher
	Roll      int64  // roll number; set iff Role == RoleStudent
}

func (c Caller) IsAdmin() bool   { return c.Role == RoleAdmin }
func (c Caller) IsTeacher() bool { return c.Role == RoleTeacher }
func (c Caller) IsStudent() bool { return c.Role == RoleStudent }
