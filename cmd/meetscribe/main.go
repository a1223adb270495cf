package main

import (
	"os"

	"meetscribe/cmd/meetscribe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
