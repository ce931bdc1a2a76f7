/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agentbridge",
	Short: "Serial bridge between an LLM agent and a kernel front-end",
	Long: `AgentBridge connects a kernel front-end to an LLM agent over an
emulator's serial PTY. The bridge command runs the daemon; the agent
command talks to the same handler locally without the serial line.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
