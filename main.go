// The main package for the catalog-crawler executable.
package main

import (
	"catalog-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
