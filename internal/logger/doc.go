// Package logger wraps zap for the daemon:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level switching,
//   - leveled helpers that take the logger from a context (InfoKV, Warnf, ...).
//
// Services receive a context and log through it, so names and key-value pairs
// attached upstream follow every message.
package logger
