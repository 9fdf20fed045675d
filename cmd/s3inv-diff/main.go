package main

import (
	"os"

	"github.com/mbrode/s3-inv-diff/cmd/s3inv-diff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
