package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bjaus/apikit"
)

var (
	exportOutput string
	exportFormat string
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return export(cmd, func(a *app, w io.Writer) error {
			spec := apikit.Spec(a.info(), a.registries...)
			switch exportFormat {
			case "yaml":
				return apikit.YAML.Encode(w, spec)
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(spec)
			default:
				return fmt.Errorf("unknown format %q", exportFormat)
			}
		})
	},
}

var postmanCmd = &cobra.Command{
	Use:   "postman",
	Short: "Print a Postman collection of the API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return export(cmd, func(a *app, w io.Writer) error {
			coll, err := a.collection()
			if err != nil {
				return err
			}
			return coll.Write(w)
		})
	},
}

func init() {
	rootCmd.AddCommand(openapiCmd, postmanCmd)

	for _, cmd := range []*cobra.Command{openapiCmd, postmanCmd} {
		cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	}
	openapiCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or yaml")
}

// export assembles the API against an in-memory store and hands it to
// write. Output goes to --output or stdout.
func export(cmd *cobra.Command, write func(*app, io.Writer) error) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return write(a, w)
}
