package controller

import (
	"net/http"
	"strconv"
	"time"

	"cfp-scheduler/core/errors"
	"cfp-scheduler/modules/schedule/dto"
	"cfp-scheduler/modules/schedule/mapper"
	"cfp-scheduler/modules/schedule/service"
	"cfp-scheduler/modules/schedule/validator"

	"github.com/labstack/echo/v4"
)

func updatedSinceQuery(c echo.Context) (*time.Time, error) {
	raw := c.QueryParam("updated_since")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GET /api/v1/private/events/:event_id/schedules
func (controller *ScheduleController) PrivateListSchedules(c echo.Context) error {
	ctx := c.Request().Context()

	eventID, err := controller.eventID(c)
	if err != nil {
		return err
	}

	schedules, errList := controller.ScheduleService.ListSchedules(ctx, eventID)
	if errList != nil {
		return controller.ErrorResponse(c, errList)
	}

	return controller.SuccessResponse(c, mapper.ToScheduleListResponse(schedules), "get schedules success")
}

// GET /api/v1/private/events/:event_id/schedules/:ref
func (controller *ScheduleController) PrivateGetSchedule(c echo.Context) error {
	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	return controller.SuccessResponse(c, mapper.ToScheduleResponse(schedule), "get schedule success")
}

// POST /api/v1/private/events/:event_id/schedules/:ref/freeze
func (controller *ScheduleController) PrivateFreezeSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	requestData := new(dto.FreezeRequest)
	if err := c.Bind(requestData); err != nil {
		return controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data", nil)
	}

	validationResult := validator.ValidateFreezeRequest(requestData)
	if validationResult.HasError() {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid request data", validationResult)
	}

	result, errFreeze := controller.ScheduleService.Freeze(ctx, schedule, mapper.ToFreezeRequest(requestData, controller.notifyDefault))
	if errFreeze != nil {
		return controller.ErrorResponse(c, errFreeze)
	}

	return controller.Created(c, mapper.ToFreezeResponse(result), "freeze schedule success")
}

// POST /api/v1/private/events/:event_id/schedules/:ref/unfreeze
func (controller *ScheduleController) PrivateUnfreezeSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	wip, errUnfreeze := controller.ScheduleService.Unfreeze(ctx, schedule)
	if errUnfreeze != nil {
		return controller.ErrorResponse(c, errUnfreeze)
	}

	return controller.SuccessResponse(c, mapper.ToScheduleResponse(wip), "unfreeze schedule success")
}

// GET /api/v1/private/events/:event_id/schedules/:ref/changes
func (controller *ScheduleController) PrivateGetChanges(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	changes, errChanges := controller.ScheduleService.GetCachedChanges(ctx, schedule)
	if errChanges != nil {
		return controller.ErrorResponse(c, errChanges)
	}

	return controller.SuccessResponse(c, mapper.ToChangesResponse(changes), "get changes success")
}

// GET /api/v1/private/events/:event_id/unreleased-changes
func (controller *ScheduleController) PrivateGetUnreleasedChanges(c echo.Context) error {
	ctx := c.Request().Context()

	eventID, err := controller.eventID(c)
	if err != nil {
		return err
	}

	dirty, errDirty := controller.ScheduleService.HasUnreleasedChanges(ctx, eventID)
	if errDirty != nil {
		return controller.ErrorResponse(c, errDirty)
	}

	return controller.SuccessResponse(c, dto.UnreleasedChangesResponse{EventID: eventID, HasUnreleasedChanges: dirty}, "get unreleased changes success")
}

// GET /api/v1/private/events/:event_id/schedules/:ref/warnings?with_speakers=&updated_since=
func (controller *ScheduleController) PrivateGetWarnings(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	updatedSince, err := updatedSinceQuery(c)
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "updated_since must be an RFC3339 timestamp")
	}

	all, errWarnings := controller.ScheduleService.AllWarnings(ctx, schedule, boolQuery(c, "with_speakers", true), updatedSince)
	if errWarnings != nil {
		return controller.ErrorResponse(c, errWarnings)
	}

	return controller.SuccessResponse(c, mapper.ToScheduleWarningsResponse(all), "get warnings success")
}

// GET /api/v1/private/events/:event_id/schedules/:ref/slots/:slot_id/warnings
func (controller *ScheduleController) PrivateGetSlotWarnings(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	slotID, err := strconv.ParseInt(c.Param("slot_id"), 10, 64)
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid slot id")
	}

	slot, errSlot := controller.ScheduleService.GetSlot(ctx, schedule, slotID)
	if errSlot != nil {
		return controller.ErrorResponse(c, errSlot)
	}

	warnings, errWarnings := controller.ScheduleService.WarningsFor(ctx, schedule, slot, boolQuery(c, "with_speakers", true), nil)
	if errWarnings != nil {
		return controller.ErrorResponse(c, errWarnings)
	}

	return controller.SuccessResponse(c, dto.SlotWarningsResponse{
		SlotID:   slot.ID,
		Warnings: mapper.ToWarningResponses(warnings),
	}, "get slot warnings success")
}

// GET /api/v1/private/events/:event_id/schedules/:ref/export
func (controller *ScheduleController) PrivateExportSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.schedule(c)
	if err != nil {
		return controller.fail(c, err)
	}

	updatedSince, err := updatedSinceQuery(c)
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "updated_since must be an RFC3339 timestamp")
	}

	data, errExport := controller.ScheduleService.BuildData(ctx, schedule, service.ExportOptions{
		AllTalks:          boolQuery(c, "all_talks", false),
		IncludeBlockers:   boolQuery(c, "include_blockers", false),
		IncludeEmptyRooms: boolQuery(c, "include_empty_rooms", false),
		UpdatedSince:      updatedSince,
	})
	if errExport != nil {
		return controller.ErrorResponse(c, errExport)
	}

	return c.JSON(http.StatusOK, data)
}
