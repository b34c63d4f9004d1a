package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAgentsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(v)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Agent", "Description"})
			for _, agent := range rt.registry.List() {
				meta := agent.Metadata()
				summary, _, _ := strings.Cut(meta.Description, "\n")
				t.AppendRow(table.Row{meta.Name, summary})
			}
			t.Render()
			return nil
		},
	}
}
