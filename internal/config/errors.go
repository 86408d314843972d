package config

import (
	"fmt"
	"strings"
)

// EnvError is returned by Config.Validate when the environment cannot serve requests
type EnvError struct {
	Missing []string
	Invalid []string
}

func (e *EnvError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required envs: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid envs: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}
