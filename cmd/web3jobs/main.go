package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Best effort; running without a .env file is normal.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
