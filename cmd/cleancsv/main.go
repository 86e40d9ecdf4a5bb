package main

import (
	"os"

	"github.com/JonMunkholm/CleanCSV/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
