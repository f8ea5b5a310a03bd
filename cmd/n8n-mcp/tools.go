package main

import (
	"github.com/spf13/cobra"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/utils"
)

func newToolsCmd() *cobra.Command {
	var withSchema bool
	cmd := &cobra.Command{
		Use:   constants.CmdTools,
		Short: constants.DescTools,
		Run: func(cmd *cobra.Command, args []string) {
			for _, spec := range api.Catalog() {
				utils.User(constants.OutputToolLine, spec.Name, spec.Description)
				if withSchema {
					utils.User("%s", string(spec.InputSchema))
				}
			}
		},
	}
	cmd.Flags().BoolVar(&withSchema, "schema", false, "also print each input schema")
	return cmd
}
