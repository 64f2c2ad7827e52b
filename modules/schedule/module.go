package schedule

import (
	"cfp-scheduler/core/cache"
	"cfp-scheduler/core/config"
	"cfp-scheduler/core/database"
	"cfp-scheduler/core/middleware"
	"cfp-scheduler/core/storage"
	"cfp-scheduler/modules/schedule/controller"
	"cfp-scheduler/modules/schedule/repository"
	"cfp-scheduler/modules/schedule/router"
	"cfp-scheduler/modules/schedule/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.Database, cache cache.Cache, mail service.MailQueue, uploader storage.Uploader, cfg config.ScheduleConfig, mw *middleware.Middleware) *service.ScheduleService {
	// Initialize layers
	repo := repository.NewScheduleRepository(db)
	scheduleService := service.NewScheduleService(repo, cache, mail)

	// Post-release observers, in order
	scheduleService.RegisterObserver(service.LogObserver{})
	if cfg.PublishExports && uploader != nil {
		scheduleService.RegisterObserver(service.NewExportPublisher(scheduleService, uploader, cfg.ExportPrefix))
	}

	scheduleController := controller.NewScheduleController(scheduleService, cfg.NotifySpeakers)

	// Setup routes
	router.NewScheduleRouter(scheduleController).Setup(e, mw)

	return scheduleService
}
