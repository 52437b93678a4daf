package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/service"
	"github.com/spf13/cobra"
)

func newRenderCmd(now func() time.Time) *cobra.Command {
	var (
		file     string
		output   string
		format   string
		fontPath string
		logoPath string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a quote file to PDF or XLSX",
		Example: `  proforma render -f quote.yaml
  proforma render -f quote.yaml -o quote.xlsx
  proforma render -f quote.yaml --font DejaVuSans.ttf --logo logo.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			qf, err := loadQuoteFile(file)
			if err != nil {
				return err
			}
			snap, err := qf.Snapshot(now())
			if err != nil {
				return err
			}

			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}

			var gen report.Generator
			switch f {
			case report.FormatXLSX:
				gen = report.NewXLSXGenerator()
			default:
				gen = report.NewPDFGenerator(fontPath)
			}

			doc := &report.Document{
				Snapshot: snap,
				Business: qf.Business.Letterhead(),
			}
			if logoPath != "" {
				doc.Logo, err = loadLogo(logoPath)
				if err != nil {
					return err
				}
			}

			var buf bytes.Buffer
			if _, err := gen.Generate(cmd.Context(), doc, &buf); err != nil {
				return fmt.Errorf("failed to render %s: %w", f, err)
			}

			if output == "" {
				output = snap.DownloadFilename(f.Extension())
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d items, total %s)\n", output, len(snap.Items), snap.GrandTotal)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quote file (YAML)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: derived from the client name)")
	cmd.Flags().StringVar(&format, "format", "", "pdf or xlsx (default: from the output extension, else pdf)")
	cmd.Flags().StringVar(&fontPath, "font", os.Getenv("PDF_FONT_PATH"), "UTF-8 TrueType font for the PDF")
	cmd.Flags().StringVar(&logoPath, "logo", "", "letterhead logo image")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// resolveFormat picks the output format from the flag, then the output
// extension.
func resolveFormat(format, output string) (report.Format, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	switch report.Format(format) {
	case "", report.FormatPDF:
		return report.FormatPDF, nil
	case report.FormatXLSX:
		return report.FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use pdf or xlsx", format)
	}
}

// loadLogo normalizes an image file the same way uploaded logos are.
func loadLogo(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open logo: %w", err)
	}
	defer f.Close()

	png, _, _, err := service.NewImagingProcessor().Normalize(f, service.LogoMaxWidth, service.LogoMaxHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	return png, nil
}
