// Package main is the entry point for fx-sync CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/ledger-fx/cmd/fx-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
