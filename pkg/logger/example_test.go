package logger_test

import (
	"errors"

	"github.com/wonny/fluxrx/pkg/config"
	"github.com/wonny/fluxrx/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	log.WithComponent("optimizer").WithFields(map[string]interface{}{
		"objective": "max_sharpe",
		"assets":    5,
		"restarts":  13,
	}).Info("optimization completed")

	// Output (stderr):
	// {"level":"info","env":"production","component":"optimizer","objective":"max_sharpe",...}
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
	})

	err := errors.New("InsufficientOverlapError: only 12 common periods")
	log.WithError(err).WithField("asset", "MSFT").Error("asset excluded")
}
