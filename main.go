package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/cli"
)

func main() {
	// Load .env when present; variables already set in the environment win.
	if os.Getenv("NO_DOTENV") != "1" {
		_ = godotenv.Load()
	}

	cli.Execute()
}
