package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter hands out category loggers whether or not file logging
// could be set up
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
}

// NewLoggerAdapter creates an adapter over a multi-logger
func NewLoggerAdapter(multiLogger *MultiLogger) *LoggerAdapter {
	return &LoggerAdapter{multiLogger: multiLogger}
}

// NewSingleLoggerAdapter creates an adapter that routes every category to logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{singleLogger: OrNop(logger)}
}

// Download returns the download event logger
func (la *LoggerAdapter) Download() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Download()
	}
	return la.singleLogger
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Error()
	}
	return la.singleLogger
}

// General returns the general logger
func (la *LoggerAdapter) General() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.General()
	}
	return la.singleLogger
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.multiLogger != nil {
		return la.multiLogger.Sync()
	}
	return la.singleLogger.Sync()
}

// GetMultiLogger returns the underlying multi-logger, nil in single mode
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}
