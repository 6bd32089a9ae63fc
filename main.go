package main

import (
	"os"

	"github.com/originesmedia/og-prerender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
