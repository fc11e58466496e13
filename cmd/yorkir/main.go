// Command yorkir runs the York IR climate bridge on a host and offers
// offline encode/decode tools for the York remote protocol.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"yorkir-go/x/logx"
)

var rootCmd = &cobra.Command{
	Use:           "yorkir",
	Short:         "York air conditioner IR bridge",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			logx.SetLevel(logx.ParseLevel(lvl))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	rootCmd.AddCommand(serveCmd, encodeCmd, decodeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("%v", err)
		os.Exit(1)
	}
}
