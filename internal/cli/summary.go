package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/share"
	"github.com/spf13/cobra"
)

func newSummaryCmd(now func() time.Time) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the items and grand total of a quote file",
		RunE: func(cmd *cobra.Command, args []string) error {
			qf, err := loadQuoteFile(file)
			if err != nil {
				return err
			}
			snap, err := qf.Snapshot(now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", snap.Number(), snap.IssuedOn())
			fmt.Fprintf(out, "Client: %s  Phone: %s  Email: %s\n\n",
				domain.OrNA(snap.Client.Name), domain.OrNA(snap.Client.Phone), domain.OrNA(snap.Client.Email))

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if snap.RateOnly {
				fmt.Fprintln(tw, "SR.\tITEM\tSIZE\tFINISH\tRATE\tREMARKS")
				for i, it := range snap.Items {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s%s\t%s\n",
						i+1, it.ItemName, it.Size, domain.OrNA(it.Finish), domain.CurrencySymbol, it.Rate, domain.OrNA(it.Remarks))
				}
			} else {
				fmt.Fprintln(tw, "SR.\tITEM\tSIZE\tAREA\tRATE\tTOTAL\tREMARKS")
				for i, it := range snap.Items {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s%s\t%s%s\t%s\n",
						i+1, it.ItemName, it.Size, it.Area, domain.CurrencySymbol, it.Rate,
						domain.CurrencySymbol, it.Total, domain.OrNA(it.Remarks))
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nTotal Amount: %s\n", snap.GrandTotal)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quote file (YAML)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newShareCmd(now func() time.Time) *cobra.Command {
	var (
		file  string
		phone string
	)

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print the WhatsApp link for a quote file",
		RunE: func(cmd *cobra.Command, args []string) error {
			qf, err := loadQuoteFile(file)
			if err != nil {
				return err
			}
			snap, err := qf.Snapshot(now())
			if err != nil {
				return err
			}

			if phone == "" {
				phone = snap.Client.Phone
			}
			link, err := share.WhatsAppURL(phone, snap.Client.Name, snap.GrandTotal, qf.Business.Letterhead().Name)
			if err != nil {
				return errors.New(domain.ErrorMessage(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quote file (YAML)")
	cmd.Flags().StringVar(&phone, "phone", "", "recipient phone (default: the client's phone)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
