// Package logging provides structured logging for nukicontrol.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level filter and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting service", "port", 5000)
//
// # Security
//
// The bridge token travels in the query string of every bridge request.
// Never log request URLs or raw transport errors from the bridge client;
// log the classified error kind and endpoint name instead.
package logging
