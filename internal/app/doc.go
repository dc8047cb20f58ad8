// Package app provides the orchestration layer for teedee.
//
// # Overview
//
// This package is the composition root: it loads configuration, builds the
// logger, the todo API client and the synchronized store, optionally starts
// a background poller, and hands everything to the UI.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read config.toml and env overrides
//	       ├─────> applyOverrides()     Apply CLI flags
//	       ├─────> logging.New()        File logger (the TUI owns the terminal)
//	       ├─────> todoapi.NewClient()  HTTP client for the todo backend
//	       ├─────> state.New()          Store in its initial loading state
//	       ├─────> StartPoller()        Only when poll_interval > 0
//	       └─────> ui.Run()             Start TUI (blocks); first Refresh
//
// # Polling
//
// Polling is off by default. When enabled it calls Store.Refresh at a fixed
// interval. It is not a retry policy: the interval never changes, and a
// failed refresh is simply reported through the store's error slot like any
// other failure. Refreshes queue behind user operations on the store's
// operation slot, so they never overlap.
//
// # Error Handling
//
// Run returns errors only for startup problems: an unreadable or malformed
// config, a log file that cannot be opened, or an invalid base URL. An
// unreachable backend is not fatal; the UI starts and shows the failure.
//
// # Usage Example
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := app.Run(ctx, app.Options{PollEvery: 30}); err != nil {
//		log.Fatal("teedee failed", "err", err)
//	}
package app
