// Package main is the supplier ranking operator CLI.
//
//	ranking-cli recompute --region north
//	ranking-cli rankings --region north --limit 10
//	ranking-cli --memory --fixtures seed.json recompute
package main

import (
	"os"
	_ "time/tzdata"

	"supplier-ranking/cmd/ranking-cli/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
