package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/tariffnews/mcp"
	tariffnews "github.com/mohammad-safakhou/tariffnews/tools/tariff_news"
)

func schemaCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the tool's advertised input schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := json.Indent(&buf, tariffnews.InputSchema(), "", "  "); err != nil {
				return fmt.Errorf("indent schema: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", mcp.ToolName, bytes.TrimSpace(buf.Bytes()))
			return nil
		},
	}
}
