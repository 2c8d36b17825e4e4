package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abk1969/ai-act-assistant-sub000/internal/usecase"
)

var (
	flagDaysBack     int
	flagSources      []string
	flagMinRelevance float64
	flagOrg          string
	flagReport       string
	flagJSON         bool
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagDaysBack, "days-back", 0, "look back this many days (default from config, else 7)")
	cmd.Flags().StringSliceVar(&flagSources, "sources", nil, "comma separated source names to query")
	cmd.Flags().Float64Var(&flagMinRelevance, "min-relevance", 0, "minimum relevance score 0-100 (default from config, else 50)")
	cmd.Flags().StringVar(&flagOrg, "org", "", "organization id used for personalization")
	cmd.Flags().StringVar(&flagReport, "report", "", "write a Markdown or HTML (.html) report to this path")
}

func runRequest(cmd *cobra.Command) usecase.RunRequest {
	req := usecase.RunRequest{
		DaysBack: flagDaysBack,
		Sources:  flagSources,
		OrgID:    flagOrg,
	}
	if cmd.Flags().Changed("min-relevance") {
		v := flagMinRelevance
		req.MinRelevanceScore = &v
	}
	return req
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Collect recent regulatory documents, analyze and classify them, personalize them
against the organization and print the resulting action plans.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, _, err := openApp(ctx, flagReport)
		if err != nil {
			return err
		}
		defer application.Close()

		res, err := application.Run(ctx, runRequest(cmd))
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		m := res.Metrics
		fmt.Fprintf(out, "Collected %d document(s), %d above threshold, %d actionable insight(s) in %s.\n",
			m.Collected, m.AboveThreshold, m.Actionable, m.ExecutionTime.Round(time.Millisecond))
		if m.EarlyExitReason != "" {
			fmt.Fprintf(out, "Stopped early: %s.\n", m.EarlyExitReason)
		}
		for _, ins := range res.Insights {
			fmt.Fprintf(out, "\n[%s] %s\n  relevance %.0f, %d action(s)\n  %s\n",
				ins.UserContext.UrgencyLevel, ins.Document.Title, ins.UserContext.RelevanceScore,
				len(ins.ActionPlan.PriorityActions), ins.Document.URL)
		}
		return nil
	},
}

func init() {
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&flagJSON, "json", false, "print the full result as JSON")
}
