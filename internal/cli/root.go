// Package cli implements the proforma command line: rendering, totalling
// and sharing quotes described in YAML files, without the web server.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the proforma command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "proforma",
		Short: "Render proforma invoices from quote files",
		Long: `Proforma renders quotations described in YAML files.

Use "render" to produce a PDF or spreadsheet, "summary" to check the
totals, and "share" to print a WhatsApp link for the client.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRenderCmd(time.Now))
	root.AddCommand(newSummaryCmd(time.Now))
	root.AddCommand(newShareCmd(time.Now))
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadQuoteFile reads the quote file named by path.
func loadQuoteFile(path string) (*QuoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quote file: %w", err)
	}
	defer f.Close()

	return LoadQuoteFile(f)
}
