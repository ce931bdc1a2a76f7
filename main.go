/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "agentbridge/cmd"

func main() {
	cmd.Execute()
}
