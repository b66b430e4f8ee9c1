// Command sample serves a small blog API built on apikit: users, posts
// and comments stored in SQLite and rendered through serialization
// structures.
//
// Run:
//
//	go run ./cmd/sample serve --seed
//
// Export the documentation:
//
//	go run ./cmd/sample openapi -o openapi.json
//	go run ./cmd/sample postman -o blog.postman.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "sample",
	Short:         "Blog API built on apikit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (TOML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
