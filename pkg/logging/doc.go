// Package logging provides structured logging configuration for oasmock.
//
// It wraps log/slog so every component logs through the same handler setup.
// Levels and output format come from configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("mock server started", "addr", addr, "operations", n)
//
// Components accept a *slog.Logger in their constructor or via a setter.
// When a logger is required but logging is disabled, use logging.Nop().
package logging
