package cmd

import (
	"os"
	"strconv"
)

// Environment variables read at startup, possibly from a .env file.
const (
	envLogLevel    = "SCRATCHSIM_LOG_LEVEL"
	envRecordDB    = "SCRATCHSIM_RECORD_DB"
	envMonitorPort = "SCRATCHSIM_MONITOR_PORT"
)

type config struct {
	LogLevel    string
	RecordDB    string
	MonitorPort int
}

func loadConfig() config {
	c := config{
		LogLevel: os.Getenv(envLogLevel),
		RecordDB: os.Getenv(envRecordDB),
	}

	if port, err := strconv.Atoi(os.Getenv(envMonitorPort)); err == nil {
		c.MonitorPort = port
	}

	return c
}
