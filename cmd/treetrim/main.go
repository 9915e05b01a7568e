// Command treetrim trains a decision tree from a job file and writes its
// nested report, optionally with a tree graph and an importance chart.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
