package config

import "os"

// GetEnv retrieves the value of an environment variable with a fallback value if not set or empty
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
