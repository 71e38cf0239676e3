package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
)

// adminApi exposes management of the roster (students, batches) and the
// teaching setup (subjects, teachers, allocations).
type adminApi struct {
	rosterSvc   roster.ServiceInterface
	teachingSvc teaching.ServiceInterface
	validate    *validator.Validate
}

func registerAdminAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	rosterSvc roster.ServiceInterface,
	teachingSvc teaching.ServiceInterface,
	validate *validator.Validate,
) {
	api := adminApi{
		rosterSvc:   rosterSvc,
		teachingSvc: teachingSvc,
		validate:    validate,
	}

	ag := g.Group("/admin", jwt, adminMiddleware())

	sg := ag.Group("/students")
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)

	bg := ag.Group("/batches")
	bg.POST("", api.createBatch)
	bg.GET("", api.queryBatches)
	bg.GET("/teacher/:teacherID", api.queryTeacherBatches)
	bg.GET("/:id", api.retrieveBatch)
	bg.PUT("/:id", api.updateBatch)
	bg.DELETE("/:id", api.destroyBatch)

	subg := ag.Group("/subjects")
	subg.POST("", api.createSubject)
	subg.GET("", api.querySubjects)
	subg.GET("/:id", api.retrieveSubject)
	subg.PUT("/:id", api.updateSubject)
	subg.DELETE("/:id", api.destroySubject)

	tg := ag.Group("/teachers")
	tg.POST("", api.createTeacher)
	tg.GET("", api.queryTeachers)
	tg.GET("/:id", api.retrieveTeacher)
	tg.PUT("/:id", api.updateTeacher)
	tg.DELETE("/:id", api.destroyTeacher)

	alg := ag.Group("/allocations")
	alg.POST("", api.allocate)
	alg.GET("", api.queryAssignments)
	alg.PUT("/:id", api.updateAssignment)
	alg.DELETE("/:id", api.deactivateAssignment)

	ag.POST("/upload/students", api.uploadStudentsCSV)
}

// Students

func (api *adminApi) createStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.rosterSvc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *adminApi) queryStudents(ctx echo.Context) error {
	filter := new(roster.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []roster.Student{})
	}
	filter.Clean()

	students, err := api.rosterSvc.QueryStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) retrieveStudent(ctx echo.Context) error {
	std, err := api.rosterSvc.GetStudentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *adminApi) updateStudent(ctx echo.Context) error {
	origStd, err := api.rosterSvc.GetStudentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}

	var data roster.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(origStd, api.validate); err != nil {
		return err
	}

	std, err := api.rosterSvc.UpdateStudent(ctx.Request().Context(), origStd.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *adminApi) destroyStudent(ctx echo.Context) error {
	if err := api.rosterSvc.DeleteStudents(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Batches

func (api *adminApi) createBatch(ctx echo.Context) error {
	var data roster.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.rosterSvc.CreateBatch(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *adminApi) queryBatches(ctx echo.Context) error {
	batches, err := api.rosterSvc.QueryBatches(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	if batches == nil {
		batches = []roster.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *adminApi) queryTeacherBatches(ctx echo.Context) error {
	batches, err := api.teachingSvc.ActiveTeacherBatches(ctx.Request().Context(), ctx.Param("teacherID"))
	if err != nil {
		return errors.Wrap(err, "querying teacher batches")
	}
	if batches == nil {
		batches = []roster.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *adminApi) retrieveBatch(ctx echo.Context) error {
	b, err := api.rosterSvc.GetBatchByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *adminApi) updateBatch(ctx echo.Context) error {
	origBatch, err := api.rosterSvc.GetBatchByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding batch")
	}

	var data roster.UpdateBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBatch")
	}
	if err := data.Validate(origBatch, api.validate); err != nil {
		return err
	}

	b, err := api.rosterSvc.UpdateBatch(ctx.Request().Context(), origBatch.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *adminApi) destroyBatch(ctx echo.Context) error {
	if err := api.rosterSvc.DeleteBatches(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *adminApi) createSubject(ctx echo.Context) error {
	var data teaching.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.teachingSvc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *adminApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.teachingSvc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []teaching.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *adminApi) retrieveSubject(ctx echo.Context) error {
	subj, err := api.teachingSvc.GetSubjectByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *adminApi) updateSubject(ctx echo.Context) error {
	origSubj, err := api.teachingSvc.GetSubjectByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}

	var data teaching.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(origSubj, api.validate); err != nil {
		return err
	}

	subj, err := api.teachingSvc.UpdateSubject(ctx.Request().Context(), origSubj.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *adminApi) destroySubject(ctx echo.Context) error {
	if err := api.teachingSvc.DeleteSubjects(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teachers

func (api *adminApi) createTeacher(ctx echo.Context) error {
	var data teaching.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tchr, err := api.teachingSvc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, tchr)
}

func (api *adminApi) queryTeachers(ctx echo.Context) error {
	filter := new(teaching.TeacherFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []teaching.Teacher{})
	}

	teachers, err := api.teachingSvc.QueryTeachers(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []teaching.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *adminApi) retrieveTeacher(ctx echo.Context) error {
	tchr, err := api.teachingSvc.GetTeacherByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	return ctx.JSON(http.StatusOK, tchr)
}

func (api *adminApi) updateTeacher(ctx echo.Context) error {
	origTchr, err := api.teachingSvc.GetTeacherByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}

	var data teaching.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err := data.Validate(origTchr, api.validate); err != nil {
		return err
	}

	tchr, err := api.teachingSvc.UpdateTeacher(ctx.Request().Context(), origTchr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, tchr)
}

func (api *adminApi) destroyTeacher(ctx echo.Context) error {
	if err := api.teachingSvc.DeleteTeachers(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Allocations

func (api *adminApi) allocate(ctx echo.Context) error {
	var data teaching.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.teachingSvc.Allocate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "allocating teacher")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *adminApi) queryAssignments(ctx echo.Context) error {
	filter := new(teaching.AssignmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []teaching.Assignment{})
	}

	assignments, err := api.teachingSvc.QueryAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []teaching.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *adminApi) updateAssignment(ctx echo.Context) error {
	var data teaching.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	asg, err := api.teachingSvc.UpdateAssignment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

// deactivateAssignment ends an allocation; assignments are never deleted so
// past marks keep their author context.
func (api *adminApi) deactivateAssignment(ctx echo.Context) error {
	asg, err := api.teachingSvc.DeactivateAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deactivating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

// uploadStudentsCSV bulk-creates students from a multipart "file" field.
// Valid rows are committed even when some rows fail; failures come back in
// the report.
func (api *adminApi) uploadStudentsCSV(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errors.Wrap(err, "reading form file")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening form file")
	}
	defer func() { _ = f.Close() }()

	report, err := api.rosterSvc.ImportStudentsCSV(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, report)
}
