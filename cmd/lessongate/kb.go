package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/brightpath/lessongate/internal/config"
	"github.com/brightpath/lessongate/internal/kb"
)

var (
	kbPathOverride string
	kbJSONOutput   bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the knowledge base",
	Long:  "Load and inspect the knowledge base documents without running the server.",
}

func init() {
	kbCmd.PersistentFlags().StringVar(&kbPathOverride, "path", "",
		"Knowledge base path (overrides config and LESSONGATE_KB_PATH)")
	kbCmd.PersistentFlags().BoolVar(&kbJSONOutput, "json", false,
		"Output in JSON format")

	kbCmd.AddCommand(kbInfoCmd)
}

var kbInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show version, checksum, and documents of the knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runKBInfo,
}

func runKBInfo(cmd *cobra.Command, args []string) error {
	loader, err := resolveLoader()
	if err != nil {
		return err
	}

	snap, err := loader.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if kbJSONOutput {
		return printJSON(out, map[string]any{
			"version":          snap.Version,
			"checksum":         snap.Checksum,
			"documents_loaded": snap.Documents,
			"grades_language":  len(snap.Ceilings),
			"grades_bloom":     len(snap.Blooms),
			"grades_interact":  len(snap.Interactions),
		})
	}

	fmt.Fprintf(out, "Version:   %s\n", snap.Version)
	fmt.Fprintf(out, "Checksum:  %s\n", snap.Checksum)
	fmt.Fprintf(out, "Documents: %d\n", len(snap.Documents))
	for _, doc := range snap.Documents {
		fmt.Fprintf(out, "  - %s\n", doc)
	}
	fmt.Fprintf(out, "Language ceilings:    %d grades\n", len(snap.Ceilings))
	fmt.Fprintf(out, "Bloom distributions:  %d grades\n", len(snap.Blooms))
	fmt.Fprintf(out, "Interaction catalogs: %d grades\n", len(snap.Interactions))

	return nil
}

// resolveLoader creates a Loader from config with optional --path override.
func resolveLoader() (*kb.Loader, error) {
	if kbPathOverride != "" {
		return kb.NewLoader(kbPathOverride), nil
	}
	kbCfg, err := config.LoadKBConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newLoader(kbCfg), nil
}

// newLoader builds a Loader from config, honoring document list overrides.
func newLoader(cfg config.KBConfig) *kb.Loader {
	if len(cfg.RequiredDocuments) > 0 || len(cfg.OptionalDocuments) > 0 {
		return kb.NewLoaderWithDocuments(cfg.Path, cfg.RequiredDocuments, cfg.OptionalDocuments)
	}
	return kb.NewLoader(cfg.Path)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
