package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
)

type assessmentApi struct {
	svc assessment.ServiceInterface
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assessment.ServiceInterface) {
	api := assessmentApi{svc: svc}

	ag := g.Group("/assessments", jwt)
	ag.POST("", api.save, teacherOnlyMiddleware())
	ag.GET("/student/:roll", api.queryForStudent)
	ag.GET("/batch/:batchID", api.queryForBatch, teacherMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
}

// save creates the assessment record for (student, experiment) or merges
// the provided marks into the existing one. Validation happens in the
// service; authorization is decided there against the caller's batches.
func (api *assessmentApi) save(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	var data assessment.SaveAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveAssessment")
	}

	a, err := api.svc.Save(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "saving assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) queryForStudent(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	roll, err := roster.ParseRoll(ctx.Param("roll"))
	if err != nil {
		return errHttpNotFound
	}

	assessments, err := api.svc.ListForStudent(ctx.Request().Context(), caller, roll)
	if err != nil {
		return errors.Wrap(err, "querying student assessments")
	}
	if assessments == nil {
		assessments = []assessment.Assessment{}
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessmentApi) queryForBatch(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	assessments, err := api.svc.ListForBatch(ctx.Request().Context(), caller, ctx.Param("batchID"))
	if err != nil {
		return errors.Wrap(err, "querying batch assessments")
	}
	if assessments == nil {
		assessments = []assessment.Assessment{}
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessmentApi) destroyMultiple(ctx echo.Context) error {
	var data DestroyMultipleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}

	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting assessments")
	}
	return ctx.NoContent(http.StatusNoContent)
}
