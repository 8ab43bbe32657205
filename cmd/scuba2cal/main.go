// Command scuba2cal writes the SCUBA-2 calibration ops-meeting plots for an
// Archimedes CSV export.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
