package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/selftest"
	"github.com/awantoch/n8n-mcp/utils"
)

// newSelfTestCmd creates the 'selftest' subcommand. It exits 1 when any probe fails.
func newSelfTestCmd() *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   constants.CmdSelfTest,
		Short: constants.DescSelfTest,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := loadDependencies()
			if err != nil {
				utils.Error("Failed to start: %v", err)
				return err
			}
			defer cleanup()

			base := &api.Call{}
			if apiKey != "" {
				base.Headers = http.Header{constants.HeaderN8NAPIKey: []string{apiKey}}
			}
			report := deps.SelfTest.Run(cmd.Context(), base)
			printReport(report)
			if !report.Success() {
				exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "n8n API key to test with (default from config)")
	return cmd
}

func printReport(r *selftest.Report) {
	for _, rec := range r.Tests {
		utils.User(constants.OutputTestLine, rec.Status, rec.Name, rec.Message)
	}
	for _, c := range r.Cleanup {
		if !c.Deleted {
			utils.User("cleanup: %s %s not deleted: %s", c.Kind, c.ID, c.Error)
		}
	}
	s := r.Summary
	utils.User(constants.OutputTestSummary, s.Total, s.Passed, s.Failed, s.Skipped, s.SuccessRate)
}
