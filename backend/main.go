package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"vilapos/m/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}
