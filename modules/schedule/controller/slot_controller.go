package controller

import (
	"strconv"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/modules/schedule/dto"
	"cfp-scheduler/modules/schedule/entity"
	"cfp-scheduler/modules/schedule/mapper"
	"cfp-scheduler/modules/schedule/validator"

	"github.com/labstack/echo/v4"
)

// wip resolves the event's work-in-progress schedule; slot edits never target a release
func (controller *ScheduleController) wip(c echo.Context) (*entity.Schedule, error) {
	eventID, err := controller.eventID(c)
	if err != nil {
		return nil, err
	}

	schedule, appErr := controller.ScheduleService.ResolveSchedule(c.Request().Context(), eventID, constants.ScheduleRefWIP)
	if appErr != nil {
		return nil, appErr
	}
	return schedule, nil
}

func (controller *ScheduleController) bindSlot(c echo.Context) (*entity.TalkSlot, error) {
	requestData := new(dto.SlotRequest)
	if err := c.Bind(requestData); err != nil {
		return nil, controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data", nil)
	}

	validationResult := validator.ValidateSlotRequest(requestData)
	if validationResult.HasError() {
		return nil, controller.BadRequest(errors.ErrInvalidInput, "Invalid request data", validationResult)
	}

	return mapper.ToSlotEntity(requestData), nil
}

// POST /api/v1/private/events/:event_id/schedules/wip/slots
func (controller *ScheduleController) PrivateCreateSlot(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.wip(c)
	if err != nil {
		return controller.fail(c, err)
	}

	slot, err := controller.bindSlot(c)
	if err != nil {
		return err
	}

	created, errCreate := controller.ScheduleService.CreateSlot(ctx, schedule, slot)
	if errCreate != nil {
		return controller.ErrorResponse(c, errCreate)
	}

	return controller.Created(c, mapper.ToSlotResponse(created), "create slot success")
}

// PUT /api/v1/private/events/:event_id/schedules/wip/slots/:slot_id
func (controller *ScheduleController) PrivateUpdateSlot(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.wip(c)
	if err != nil {
		return controller.fail(c, err)
	}

	slotID, err := strconv.ParseInt(c.Param("slot_id"), 10, 64)
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid slot id")
	}

	slot, err := controller.bindSlot(c)
	if err != nil {
		return err
	}
	slot.ID = slotID

	updated, errUpdate := controller.ScheduleService.UpdateSlot(ctx, schedule, slot)
	if errUpdate != nil {
		return controller.ErrorResponse(c, errUpdate)
	}

	return controller.SuccessResponse(c, mapper.ToSlotResponse(updated), "update slot success")
}

// DELETE /api/v1/private/events/:event_id/schedules/wip/slots/:slot_id
func (controller *ScheduleController) PrivateDeleteSlot(c echo.Context) error {
	ctx := c.Request().Context()

	schedule, err := controller.wip(c)
	if err != nil {
		return controller.fail(c, err)
	}

	slotID, err := strconv.ParseInt(c.Param("slot_id"), 10, 64)
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid slot id")
	}

	if errDelete := controller.ScheduleService.DeleteSlot(ctx, schedule, slotID); errDelete != nil {
		return controller.ErrorResponse(c, errDelete)
	}

	return controller.SuccessResponse(c, nil, "delete slot success")
}
