// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// substituteEnvVars replaces ${VAR} or ${VAR:default} references in
// raw with the named environment variable's value, falling back to
// the given default (or the empty string) when it is unset. This lets
// a konnekt.yaml reference the signalling URL, or any other string
// field, indirectly: `signallingUrl: "${KONNEKT_SIGNALLING_URL}"`.
func substituteEnvVars(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value, ok := os.LookupEnv(parts[1]); ok {
			return value
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	})
}
