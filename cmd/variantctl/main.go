package main

import (
	"os"

	"storefront-variant-service/internal/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		os.Exit(1)
	}
}
