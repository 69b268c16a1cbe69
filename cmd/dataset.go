package main

import "github.com/spf13/cobra"

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build and inspect the region dataset",
}

func init() {
	rootCmd.AddCommand(datasetCmd)
}
