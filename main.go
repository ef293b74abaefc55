package main

import (
	"github.com/joho/godotenv"

	"github.com/katori-hub/Cortex/cmd"
)

func main() {
	// Optional .env in the working directory; absence is fine.
	_ = godotenv.Load()
	cmd.Execute()
}
