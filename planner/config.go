package planner

import "github.com/joho/godotenv"

func init() {
	// Auto-load .env file if it exists (silent fail)
	_ = godotenv.Load()
}

// LoadEnv loads environment variables from specified .env files.
// If no files are specified, it loads from .env in the current directory.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}
