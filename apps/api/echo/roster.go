package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
)

// rosterApi serves the read-side portal endpoints: batch rosters for
// teachers, own profile and performance for students.
type rosterApi struct {
	rosterSvc     roster.ServiceInterface
	teachingSvc   teaching.ServiceInterface
	assessmentSvc assessment.ServiceInterface
}

func registerRosterAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	rosterSvc roster.ServiceInterface,
	teachingSvc teaching.ServiceInterface,
	assessmentSvc assessment.ServiceInterface,
) {
	api := rosterApi{
		rosterSvc:     rosterSvc,
		teachingSvc:   teachingSvc,
		assessmentSvc: assessmentSvc,
	}

	g.GET("/batches/:id/students", api.queryBatchStudents, jwt, teacherMiddleware())

	sg := g.Group("/students", jwt, studentMiddleware())
	sg.GET("/me", api.retrieveSelf)
	sg.GET("/performance", api.retrievePerformance)

	tg := g.Group("/teachers", jwt, teacherMiddleware())
	tg.GET("/me", api.retrieveTeacherSelf)
	tg.GET("/batches", api.queryOwnBatches)
}

// queryBatchStudents lists the students of a batch. Teachers must hold an
// active assignment on the batch; admins are not restricted.
func (api *rosterApi) queryBatchStudents(ctx echo.Context) error {
	clms, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	batchID := ctx.Param("id")

	if !clms.IsAdmin() {
		ok, err := api.teachingSvc.AuthorizeBatch(ctx.Request().Context(), clms.TeacherID, batchID)
		if err != nil {
			return errors.Wrap(err, "authorizing batch access")
		}
		if !ok {
			return errHttpForbidden
		}
	}

	students, err := api.rosterSvc.QueryBatchStudents(ctx.Request().Context(), batchID)
	if err != nil {
		return errors.Wrap(err, "querying batch students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) retrieveSelf(ctx echo.Context) error {
	clms, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	std, err := api.rosterSvc.GetStudentByRoll(ctx.Request().Context(), clms.Roll)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *rosterApi) retrievePerformance(ctx echo.Context) error {
	clms, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	summary, err := api.assessmentSvc.Summary(ctx.Request().Context(), clms.Caller(), clms.Roll)
	if err != nil {
		return errors.Wrap(err, "summarizing performance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *rosterApi) retrieveTeacherSelf(ctx echo.Context) error {
	clms, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if clms.TeacherID == "" {
		return errHttpNotFound
	}

	tchr, err := api.teachingSvc.GetTeacherByID(ctx.Request().Context(), clms.TeacherID)
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	return ctx.JSON(http.StatusOK, tchr)
}

func (api *rosterApi) queryOwnBatches(ctx echo.Context) error {
	clms, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	batches, err := api.teachingSvc.ActiveTeacherBatches(ctx.Request().Context(), clms.TeacherID)
	if err != nil {
		return errors.Wrap(err, "querying own batches")
	}
	if batches == nil {
		batches = []roster.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}
