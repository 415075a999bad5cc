// ./main.go
package main

import (
	"github.com/xkilldash9x/domq/cmd"
)

// main is the entry point for the domq CLI.
func main() {
	cmd.Execute()
}
