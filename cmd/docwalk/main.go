// Command docwalk extracts text from document storage trees.
package main

import "github.com/meigma/docwalk/internal/cli"

func main() {
	cli.Execute()
}
