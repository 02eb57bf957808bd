package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	relay_cmds "github.com/go-go-golems/chatbot-relay/cmd/chatbot-relay/cmds"
)

var rootCmd = &cobra.Command{
	Use:   "chatbot-relay",
	Short: "Relay website chat widget messages to a workflow webhook",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	if err := clay.InitGlazed("chatbot-relay", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	serveCmd, err := relay_cmds.NewServeCommand()
	cobra.CheckErr(err)
	sendCmd, err := relay_cmds.NewSendCommand()
	cobra.CheckErr(err)
	chatCmd, err := relay_cmds.NewChatCommand()
	cobra.CheckErr(err)

	for _, c := range []cmds.Command{serveCmd, sendCmd, chatCmd} {
		command, err := cli.BuildCobraCommand(c)
		cobra.CheckErr(err)
		rootCmd.AddCommand(command)
	}

	allowlistCmd, err := relay_cmds.NewAllowlistCommand()
	cobra.CheckErr(err)
	rootCmd.AddCommand(allowlistCmd)

	cobra.CheckErr(rootCmd.Execute())
}
