// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components take a *Logger and derive a named child from it, so every
// line carries the subsystem that emitted it (transaction, batch, cache).
//
// Example Usage:
//
//	logger, err := logging.New(logging.ConfigFor(cfg.Logging.Development, cfg.Logging.Level))
//	log := logger.Named("transaction")
//	log.Info("transaction committed", logging.TxID(txID))
//	log.Error("rollback step failed", logging.Step(2), zap.Error(err))
package logging
