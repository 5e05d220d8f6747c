package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/kokukuma/mdoc-issuer/cmd/server/startcmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use: "issuer",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(startcmd.GetStartCmd(&startcmd.HTTPServer{}))
	rootCmd.AddCommand(startcmd.GetDeviceKeyCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("failed to run issuer: %s", err.Error())
	}
}
