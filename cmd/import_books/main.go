// Command import_books adds every row of a books CSV
// (isbn,title,author,availability) to the books table. Known isbns are
// restocked.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"library-records/internal/config"
	"library-records/internal/logging"
	"library-records/library"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "import_books: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var configPath, basePath, logLevel string
	cmd := &cobra.Command{
		Use:           "import_books FILE",
		Short:         "Import a books CSV into the books table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if basePath != "" {
				cfg.BasePath = basePath
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logDir, err := cfg.ResolvedLogDir()
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(logging.Options{Dir: logDir, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			defer closer.Close()
			paths, err := cfg.Paths()
			if err != nil {
				return err
			}
			books := library.NewBooksTable(paths.Books, logger)
			return importBooks(cmd.OutOrStdout(), books, library.NewStore(args[0], library.BookColumns.Columns(), logger))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&basePath, "base-path", "", "Directory holding assets/ and logs/")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Console log level")
	return cmd
}

func importBooks(w io.Writer, books *library.BooksTable, src *library.Store) error {
	if _, err := os.Stat(src.Path()); err != nil {
		return err
	}
	rows, err := src.ListAll()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Importing %d book(s) from %s...\n", len(rows), src.Path())

	successCount := 0
	skipCount := 0
	for _, row := range rows {
		b, err := library.BookFromRecord(row)
		if err != nil {
			return err
		}
		if _, ok := row.Int(library.ColAvailability); !ok {
			b.Availability = 1
		}
		fmt.Fprintf(w, "Importing: %s by %s... ", b.Title, b.Author)
		o, err := books.AddOrRestock(b)
		if err != nil {
			fmt.Fprintln(w, "ERROR")
			return err
		}
		if !o.Applied {
			fmt.Fprintf(w, "SKIPPED - %s\n", o.Reason)
			skipCount++
			continue
		}
		fmt.Fprintf(w, "SUCCESS (ISBN: %d)\n", b.ISBN)
		successCount++
	}

	fmt.Fprintf(w, "\nImport complete!\n")
	fmt.Fprintf(w, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(w, "Skipped: %d\n", skipCount)

	if successCount > 0 {
		all, err := books.List()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nBooks table:")
		fmt.Fprintf(w, "%-13s %-50s %-30s %s\n", "ISBN", "Title", "Author", "Availability")
		fmt.Fprintln(w, strings.Repeat("-", 108))
		for _, b := range all {
			fmt.Fprintf(w, "%-13d %-50s %-30s %d\n", b.ISBN, truncateString(b.Title, 50), truncateString(b.Author, 30), b.Availability)
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut, tail := maxLen-3, "..."
	if maxLen <= 3 {
		cut, tail = maxLen, ""
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + tail
}
