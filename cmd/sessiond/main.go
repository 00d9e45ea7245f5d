// ABOUTME: Entry point for the session core daemon
// ABOUTME: Delegates to the cobra root command; see root.go/serve.go/routes.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
