package config

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFileNames are tried in order next to the manifest; the first one found wins.
var envFileNames = []string{".env", ".env.local"}

// loadEnvFile loads environment variables from the first .env/.env.local file in dir.
// Variables already set in the process environment are kept. It returns the file
// loaded, or an error when none could be loaded.
func loadEnvFile(dir string) (string, error) {
	for _, name := range envFileNames {
		path := filepath.Join(dir, name)
		if err := godotenv.Load(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no .env file found in %s", dir)
}
