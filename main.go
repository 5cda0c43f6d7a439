package main

import (
	"log"

	"github.com/thiagokokada/git-explorer/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("git-explorer: %v", err)
	}
}
