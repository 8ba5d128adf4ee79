// harvester crawls the Workana job board on a schedule, stores every
// listing once, and forwards new listings to Slack and a spreadsheet.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[harvester] %v\n", err)
		os.Exit(1)
	}
}
