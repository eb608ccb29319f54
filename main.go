// Package main is the entry point for the s2stats CLI tool, which imports
// S2 match logs, tags team rounds by main weapon and reports usage trends
// and tag/win correlations.
package main

import "github.com/pable/s2-analytics/cmd"

func main() {
	cmd.Execute()
}
