package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/cli"
)

func main() {
	// Optional .env for local development; a missing file is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
