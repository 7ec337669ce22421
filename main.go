// main is the entry point for the backfill CLI.
package main

import (
	"github.com/coffeeportal/backfill/cmd"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("Error", err)
	}
}
