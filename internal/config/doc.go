// Package config loads teedee's TOML configuration.
//
// # Overview
//
// The config file tells teedee where the todo backend lives, how long to wait
// for it, whether to poll it, and where to write logs. Every field is optional.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/teedee/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//  5. Environment variables override whatever the file produced
//
// # Default Values
//
//   - Config file: ~/.config/teedee/config.toml
//   - Backend: http://127.0.0.1:8000
//   - Request timeout: 10s
//   - Poll interval: 0 (polling disabled)
//   - Log level/format: info/text
//   - Log file: ~/.local/state/teedee/teedee.log
//
// # TOML Format
//
//	base_url = "http://127.0.0.1:8000"
//	timeout = "10s"
//	poll_interval = "30s"
//	log_level = "debug"
//	log_format = "logfmt"
//	log_file = "~/.local/state/teedee/teedee.log"
//
// Durations use time.ParseDuration syntax. Setting log_file to "" disables
// file logging. Malformed files and bad durations fail with an error that
// mentions "parse config".
//
// # Environment
//
//   - TEEDEE_BASE_URL overrides base_url
//   - TEEDEE_LOG_LEVEL overrides log_level
//   - TEEDEE_LOG_FILE overrides log_file (empty disables)
package config
