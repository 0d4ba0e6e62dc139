package main

import (
	"os"

	"github.com/L1nMay/portscanner-console/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
