package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightpath/lessongate/internal/config"
	"github.com/brightpath/lessongate/internal/store"
	"github.com/brightpath/lessongate/internal/types"
	"github.com/brightpath/lessongate/internal/validation"
)

var (
	topicsDBOverride string
	topicsJSONOutput bool
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage curriculum topics",
	Long:  "Import and list curriculum topics without running the server.",
}

func init() {
	topicsCmd.PersistentFlags().StringVar(&topicsDBOverride, "db", "",
		"Database path (overrides config and LESSONGATE_DB_PATH)")
	topicsCmd.PersistentFlags().BoolVar(&topicsJSONOutput, "json", false,
		"Output in JSON format")

	topicsCmd.AddCommand(topicsImportCmd)
	topicsCmd.AddCommand(topicsListCmd)
}

// topicSeed is one entry of a topics import file.
type topicSeed struct {
	Name          string   `yaml:"name"`
	Grade         string   `yaml:"grade"`
	Subject       string   `yaml:"subject"`
	Chapter       string   `yaml:"chapter"`
	Narrative     string   `yaml:"narrative"`
	Prerequisites []string `yaml:"prerequisites"`
	Exclusions    []string `yaml:"exclusions"`
}

var topicsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import topics from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicsImport,
}

func runTopicsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading topics file: %w", err)
	}

	var seeds []topicSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parsing topics file: %w", err)
	}
	if len(seeds) == 0 {
		return fmt.Errorf("topics file %s contains no topics", args[0])
	}

	db, err := resolveTopicStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()
	imported := 0

	for i, seed := range seeds {
		topic := types.Topic{
			Name:          seed.Name,
			Grade:         strings.ToUpper(strings.TrimSpace(seed.Grade)),
			Subject:       seed.Subject,
			Chapter:       seed.Chapter,
			Narrative:     seed.Narrative,
			Prerequisites: seed.Prerequisites,
			Exclusions:    seed.Exclusions,
		}

		if errs := validation.ValidateTopic(topic); len(errs) > 0 {
			for _, verr := range errs {
				fmt.Fprintf(out, "skipping topic %d (%s): %s %s\n", i+1, seed.Name, verr.Field, verr.Message)
			}
			continue
		}

		created, err := db.CreateTopic(ctx, topic)
		if err != nil {
			return fmt.Errorf("importing topic %q: %w", seed.Name, err)
		}
		fmt.Fprintf(out, "imported topic %d: %s (grade %s)\n", created.ID, created.Name, created.Grade)
		imported++
	}

	fmt.Fprintf(out, "%d of %d topics imported\n", imported, len(seeds))
	return nil
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all topics",
	Args:  cobra.NoArgs,
	RunE:  runTopicsList,
}

func runTopicsList(cmd *cobra.Command, args []string) error {
	db, err := resolveTopicStore()
	if err != nil {
		return err
	}
	defer db.Close()

	topics, err := db.ListTopics(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if topicsJSONOutput {
		return printJSON(out, topics)
	}

	if len(topics) == 0 {
		fmt.Fprintln(out, "no topics")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGRADE\tSUBJECT\tCHAPTER")
	for _, t := range topics {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Grade, t.Subject, t.Chapter)
	}
	return tw.Flush()
}

// resolveTopicStore opens the store from config with optional --db override.
func resolveTopicStore() (store.Store, error) {
	path := topicsDBOverride
	if path == "" {
		dbCfg, err := config.LoadDatabaseConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = dbCfg.Path
	}
	return store.NewSQLiteStore(path)
}
