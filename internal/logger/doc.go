// Package logger wraps zap and offers:
//   - a global sugared logger writing console lines to stderr,
//   - an optional JSON copy of every entry in a rotating log file,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and leveled helpers (InfoKV, ErrorKV, etc.).
//
// Stdout is left to command output such as the printed manifest.
package logger
