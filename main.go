package main

import (
	"cfp-scheduler/core/logger"
	"cfp-scheduler/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
