// Package logging provides subsystem-tagged structured logging for bodhi on
// top of Go's log/slog.
//
// Every entry carries a "subsystem" attribute so that output from the setup
// controller, the secret store, the hub cache and the HTTP layer can be told
// apart. Errors passed to Error are rendered as an "error" attribute.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Setup", "application set up with status %s", status)
//	logging.Debug("Hub", "cache hit for %s", path)
//	logging.Error("Secrets", err, "failed to commit transaction")
//
// Components that take a *slog.Logger (for example pkg/oauth.Client) can be
// given one scoped to a subsystem with Logger("OAuth").
//
// Secret material (client secrets, tokens, keys) must never be passed to
// these functions.
package logging
