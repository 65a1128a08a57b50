package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tobsdb/tdbstore/pkg"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tdbstore",
	Short: "Inspect tdbstore schemas and collections",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level, _ := cmd.Flags().GetString("log-level"); len(level) > 0 {
			pkg.SetLogLevel(pkg.ParseLogLevel(level))
		}
	},
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate [SCHEMA]",
	Short: "Check a schema file for errors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema_path := "./schema.tdb"
		if len(args) > 0 {
			schema_path = args[0]
		}
		return runValidate(cmd.OutOrStdout(), schema_path)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Load a data file into the configured collection and print a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		config_path, _ := cmd.Flags().GetString("config")
		data_path, _ := cmd.Flags().GetString("data")
		return runSnapshot(cmd.OutOrStdout(), config_path, data_path)
	},
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Load a data file and print the records matching a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		config_path, _ := cmd.Flags().GetString("config")
		data_path, _ := cmd.Flags().GetString("data")
		where, _ := cmd.Flags().GetStringArray("where")
		sort_by, _ := cmd.Flags().GetStringArray("sort")
		return runFind(cmd.OutOrStdout(), config_path, data_path, where, sort_by)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "none, error, warn or debug")

	for _, cmd := range []*cobra.Command{snapshotCmd, findCmd} {
		cmd.Flags().StringP("config", "c", "./tdbstore.toml", "collection config file")
		cmd.Flags().StringP("data", "d", "", "JSON file with an array of records")
		cmd.MarkFlagRequired("data")
	}
	findCmd.Flags().StringArrayP("where", "w", nil, "field=value match, repeatable")
	findCmd.Flags().StringArrayP("sort", "s", nil, "field[:asc|:desc] order, repeatable")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(findCmd)
}
