// Command sprout generates blog articles for the Sprout meal-planning app
// and serves the generation API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
