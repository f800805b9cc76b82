package main

import (
	"fmt"
	"os"

	"dotmac/cmd/dotmac"
)

func main() {
	if err := dotmac.Command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
