//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Package util holds the process-wide logger shared by the commands.
package util

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger behind printf-style methods. It satisfies
// the logging interfaces of the library packages.
type Logger struct {
	logger *zerolog.Logger
}

var instance *Logger

// SetLoggerInstance installs the logger returned by Log. main calls it once
// after wiring up log outputs.
func SetLoggerInstance(l *zerolog.Logger) {
	instance = &Logger{l}
}

// Log returns the process logger, falling back to a console logger if
// SetLoggerInstance has not run yet.
func Log() *Logger {
	if instance == nil {
		instance = defaultLogger()
		instance.Warnf("default logger in use. SetLoggerInstance() should be called first")
	}
	return instance
}

func defaultLogger() *Logger {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Timestamp().Logger()
	return &Logger{&l}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}
