// Package app bootstraps bodhi: it loads configuration, initializes logging,
// opens the secret store and wires the setup, hub, chat template and HTTP
// services together.
package app
