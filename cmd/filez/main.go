package main

import (
	"os"

	"github.com/my-own-web-services/mows-sub001/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
