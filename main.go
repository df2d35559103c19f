package main

import (
	"os"

	"github.com/enfinlibre/formation/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
