package main

import (
	"os"

	"flutterstrap/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
