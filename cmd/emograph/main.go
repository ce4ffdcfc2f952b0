// Command emograph replays emotion propagation datasets as an animated graph.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
