package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envRefRE = regexp.MustCompile(`\$\{([^}]+)\}`)

// applyFile reads a flat YAML mapping of setting names to scalar values, for
// example:
//
//	PORT: 9090
//	PREDICT_BACKEND_URL: ${PREDICT_URL}
//
// ${VAR} references are expanded before parsing. Each key is exported to the
// process environment unless that variable is already set, so the real
// environment always wins over the file.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &values); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	for k, v := range values {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			return fmt.Errorf("config file: %s must be a scalar", key)
		}
		if cur, ok := os.LookupEnv(key); ok && cur != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("config file: setting %s: %w", key, err)
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR} with the variable's value (empty when unset).
func expandEnvVars(s string) string {
	return envRefRE.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envRefRE.FindStringSubmatch(m)[1])
	})
}
