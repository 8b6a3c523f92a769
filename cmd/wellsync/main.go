package main

import (
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/wellsync/internal/cli"
)

func main() {
	// A .env file is optional for the client.
	_ = godotenv.Load()
	cli.Execute()
}
