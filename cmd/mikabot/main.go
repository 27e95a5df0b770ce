package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Values from .env never override variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("Failed to read .env: " + err.Error() + "\n")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
