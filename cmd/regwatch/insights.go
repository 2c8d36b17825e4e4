package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var flagLimit int

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List persisted insights, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, _, err := openApp(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer application.Close()

		summaries, err := application.Recent(cmd.Context(), flagOrg, flagLimit)
		if err != nil {
			return fmt.Errorf("listing insights: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No insights stored yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tURGENCY\tRELEVANCE\tACTIONS\tTITLE")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%d\t%s\n",
				s.CreatedAt.Format("2006-01-02 15:04"), s.UrgencyLevel, s.RelevanceScore, s.ActionCount, s.Title)
		}
		return w.Flush()
	},
}

func init() {
	insightsCmd.Flags().StringVar(&flagOrg, "org", "", "only show insights for this organization")
	insightsCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of insights")
}
