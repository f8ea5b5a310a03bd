package main

import (
	"github.com/spf13/cobra"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/utils"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   constants.CmdVersion,
		Short: constants.DescVersion,
		Run: func(cmd *cobra.Command, args []string) {
			utils.User("%s %s", constants.ServerName, constants.ServerVersion)
		},
	}
}
