package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	if err := rootCMD().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "tariffnews",
		Short:        "MCP server for news on international reactions to US tariffs",
		SilenceUsage: true,
		Version:      version,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	root.AddCommand(serveCMD(&cfgPath), tokenCMD(&cfgPath), schemaCMD())
	return root
}
