// Package config loads and validates tenderlist configuration.
//
// Configuration is stored as TOML. Load resolves the file path (explicit flag,
// then ~/.config/tenderlist/config.toml, then ./tenderlist.toml), merges it
// over defaults, expands paths, applies environment fallbacks for secrets, and
// validates the result. Credentials for remote services are validated lazily
// via ValidateLLM so that queue inspection works without them.
package config
