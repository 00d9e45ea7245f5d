// ABOUTME: Entry point for the session core control CLI
// ABOUTME: A thin websocket client exercising the wsproto client role against a running sessiond
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
