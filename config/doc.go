// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package config loads library configuration with a fixed precedence:
built-in defaults, then a YAML file, then environment variables.

	cfg, err := config.NewLoader().
	    WithConfigPath("schemaloop.yaml").
	    WithEnvPrefix("SCHEMALOOP").
	    Load()

Environment keys follow the struct nesting, for example
SCHEMALOOP_RETRY_MAX_ATTEMPTS.
*/
package config
