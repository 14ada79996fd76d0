package main

import (
	"github.com/skizzehq/skizze/internal/server"
	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/logger"
	"github.com/skizzehq/skizze/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
