package main

import (
	"os"

	"github.com/0gfoundation/0g-relay-gate/cmd/ticketctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
