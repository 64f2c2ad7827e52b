package router

import (
	"cfp-scheduler/core/middleware"
	"cfp-scheduler/modules/schedule/controller"

	"github.com/labstack/echo/v4"
)

type ScheduleRouter struct {
	controller *controller.ScheduleController
}

func NewScheduleRouter(controller *controller.ScheduleController) *ScheduleRouter {
	return &ScheduleRouter{
		controller: controller,
	}
}

func (r *ScheduleRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Private routes (require authentication)
	eventRoutes := v1.Group("/private/events/:event_id")
	eventRoutes.Use(mw.AuthMiddleware())

	eventRoutes.GET("/unreleased-changes", r.controller.PrivateGetUnreleasedChanges)

	// Schedules
	eventRoutes.GET("/schedules", r.controller.PrivateListSchedules)
	eventRoutes.GET("/schedules/:ref", r.controller.PrivateGetSchedule)
	eventRoutes.POST("/schedules/:ref/freeze", r.controller.PrivateFreezeSchedule)
	eventRoutes.POST("/schedules/:ref/unfreeze", r.controller.PrivateUnfreezeSchedule)
	eventRoutes.GET("/schedules/:ref/changes", r.controller.PrivateGetChanges)
	eventRoutes.GET("/schedules/:ref/export", r.controller.PrivateExportSchedule)

	// Warnings
	eventRoutes.GET("/schedules/:ref/warnings", r.controller.PrivateGetWarnings)
	eventRoutes.GET("/schedules/:ref/slots/:slot_id/warnings", r.controller.PrivateGetSlotWarnings)

	// WIP slot editing
	eventRoutes.POST("/schedules/wip/slots", r.controller.PrivateCreateSlot)
	eventRoutes.PUT("/schedules/wip/slots/:slot_id", r.controller.PrivateUpdateSlot)
	eventRoutes.DELETE("/schedules/wip/slots/:slot_id", r.controller.PrivateDeleteSlot)
}
