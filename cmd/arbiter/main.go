// Command arbiter runs the decision engine from the command line against a
// local badger journal, without the database or blob storage the server uses.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
