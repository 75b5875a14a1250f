// Package config loads bodhi's configuration.
//
// Configuration is resolved in three layers: built-in defaults, then
// config.yaml from the bodhi home directory ($BODHI_HOME or ~/.cache/bodhi),
// then environment variables (BODHI_*, HF_ENDPOINT, HF_TOKEN). The result
// is validated before use; failures are reported as ConfigurationError.
//
// Example config.yaml:
//
//	server:
//	  host: 0.0.0.0
//	  port: 1135
//	auth:
//	  url: https://id.example.com
//	  realm: bodhi
//	hub:
//	  aliasesDir: /srv/bodhi/aliases
//	logging:
//	  level: debug
package config
