package controller

import (
	"strconv"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/controller"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/core/utils"
	"cfp-scheduler/modules/schedule/entity"
	"cfp-scheduler/modules/schedule/service"

	"github.com/labstack/echo/v4"
)

type ScheduleController struct {
	controller.BaseController
	ScheduleService service.ScheduleServiceInterface
	notifyDefault   bool
}

func NewScheduleController(svc service.ScheduleServiceInterface, notifyDefault bool) *ScheduleController {
	return &ScheduleController{
		BaseController:  controller.NewBaseController(),
		ScheduleService: svc,
		notifyDefault:   notifyDefault,
	}
}

// eventID reads :event_id and checks the caller may organize that event
func (controller *ScheduleController) eventID(c echo.Context) (int64, error) {
	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		return 0, controller.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	claims, ok := c.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return 0, controller.Unauthorized(errors.ErrUnauthorized, "Missing token data")
	}
	if !claims.CanManageEvent(eventID) {
		return 0, controller.Forbidden(errors.ErrForbidden, "You cannot manage this event")
	}

	return eventID, nil
}

// schedule resolves :ref inside the caller's event
func (controller *ScheduleController) schedule(c echo.Context) (*entity.Schedule, error) {
	eventID, err := controller.eventID(c)
	if err != nil {
		return nil, err
	}

	schedule, appErr := controller.ScheduleService.ResolveSchedule(c.Request().Context(), eventID, c.Param("ref"))
	if appErr != nil {
		return nil, appErr
	}
	return schedule, nil
}

// fail passes echo errors through and renders service errors
func (controller *ScheduleController) fail(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return controller.ErrorResponse(c, err)
}

func boolQuery(c echo.Context, name string, fallback bool) bool {
	value, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return value
}
