package cmd

import (
	"context"
	"fmt"
	"os"

	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/revisely/revisely/internal/app"
	"github.com/revisely/revisely/internal/config"
	"github.com/revisely/revisely/internal/db"
	"github.com/revisely/revisely/internal/document"
	"github.com/revisely/revisely/internal/format"
	"github.com/revisely/revisely/internal/logging"
	"github.com/revisely/revisely/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "revisely",
	Short: "AI suggestion engine for application essays",
	Long: `Revisely analyzes a draft essay with an AI advisor, re-anchors each
suggestion against the text even after edits, and applies only the
replacements that pass its safety checks. Drafts, applied edits, and
dismissed suggestions persist across runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("help").Changed {
			cmd.Help()
			return nil
		}
		if cmd.Flag("version").Changed {
			fmt.Println(version.Version)
			return nil
		}

		// Setup logging
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
				ReportTimestamp: true,
				Level:           charmlog.DebugLevel,
			})))
		} else {
			slog.SetDefault(slog.New(slog.NewTextHandler(logging.NewSlogWriter(), nil)))
		}

		// Load the config
		debug, _ := cmd.Flags().GetBool("debug")
		cwd, _ := cmd.Flags().GetString("cwd")
		if cwd != "" {
			if err := os.Chdir(cwd); err != nil {
				return fmt.Errorf("failed to change directory: %v", err)
			}
		}
		if cwd == "" {
			c, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current working directory: %v", err)
			}
			cwd = c
		}
		if _, err := config.Load(cwd, debug); err != nil {
			return err
		}

		outputFormatStr, _ := cmd.Flags().GetString("output-format")
		outputFormat := format.OutputFormat(outputFormatStr)
		if !outputFormat.IsValid() {
			return fmt.Errorf("invalid output format: %s", outputFormatStr)
		}

		// Connect DB, this will also run migrations
		conn, err := db.Connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		application, err := app.New(ctx, conn)
		if err != nil {
			slog.Error("Failed to create app", "error", err)
			return err
		}

		if list, _ := cmd.Flags().GetBool("list"); list {
			return listDocuments(ctx, application)
		}

		docFile, _ := cmd.Flags().GetString("doc")
		docID, _ := cmd.Flags().GetString("doc-id")
		if docFile == "" && docID == "" {
			return fmt.Errorf("nothing to do: pass --doc <file>, --doc-id <id>, or --list")
		}

		applyBatch, _ := cmd.Flags().GetBool("apply")
		quiet, _ := cmd.Flags().GetBool("quiet")
		programContext, _ := cmd.Flags().GetString("program")
		title, _ := cmd.Flags().GetString("title")

		return analyzeAndReport(ctx, application, analyzeParams{
			docFile:        docFile,
			docID:          docID,
			title:          title,
			programContext: programContext,
			apply:          applyBatch,
			quiet:          quiet,
			outputFormat:   outputFormat,
		})
	},
}

func listDocuments(ctx context.Context, application *app.App) error {
	docs, err := application.Documents.List(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents yet. Analyze one with --doc <file>.")
		return nil
	}
	for _, doc := range docs {
		marker := " "
		if document.HasChanges(doc.AnalyzedContent, doc.Content) {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, doc.ID, doc.Title)
	}
	return nil
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Version")
	rootCmd.Flags().BoolP("debug", "d", false, "Debug")
	rootCmd.Flags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.Flags().String("doc", "", "Draft file to analyze ('-' for stdin)")
	rootCmd.Flags().String("doc-id", "", "Stored document id to re-open")
	rootCmd.Flags().String("title", "", "Title for a newly stored draft")
	rootCmd.Flags().String("program", "", "Program context given to the advisor (e.g. 'PA school personal statement')")
	rootCmd.Flags().Bool("apply", false, "Apply the non-conflicting safe suggestions and print the revised draft")
	rootCmd.Flags().Bool("list", false, "List stored documents")
	rootCmd.Flags().StringP("output-format", "f", format.TextFormat.String(),
		"Output format for reports (text, json)")
	rootCmd.Flags().BoolP("quiet", "q", false, "Hide status output (report only)")
	rootCmd.Flags().Bool("verbose", false, "Log to stderr instead of the log store")
}
