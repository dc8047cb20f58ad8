// Package logging builds teedee's structured logger and reads back its file.
//
// The terminal belongs to the UI, so log output goes to a file (or nowhere).
// New wires charmbracelet/log with the configured level and formatter:
//
//	logger, closer, err := logging.New(logging.Options{
//		Level:  cfg.LogLevel,
//		Format: cfg.LogFormat,
//		Path:   cfg.LogFile,
//	})
//	defer closer.Close()
//
// Tail keeps a ring buffer of the last N lines so the UI log overlay can show
// recent entries without loading the whole file.
package logging
