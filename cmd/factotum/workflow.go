package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dispatch runs one workflowrunner action and prints the transcript.
func dispatch(cmd *cobra.Command, v *viper.Viper, params map[string]any) error {
	rt, err := buildRuntime(v)
	if err != nil {
		return err
	}
	transcript, err := rt.registry.Dispatch(cmd.Context(), "workflowrunner", params)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), transcript)
	return nil
}

// parseVariables decodes the --var flags (name=json-or-string pairs).
func parseVariables(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, found := cutPair(pair)
		if !found {
			return nil, fmt.Errorf("invalid variable %q, expected name=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		vars[name] = value
	}
	return vars, nil
}

func cutPair(pair string) (string, string, bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			return pair[:i], pair[i+1:], true
		}
	}
	return pair, "", false
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var (
		varFlags  []string
		startFrom string
		stopAt    string
	)
	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Execute a workflow and print its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVariables(varFlags)
			if err != nil {
				return err
			}
			params := map[string]any{
				"action":        "run",
				"workflow_name": args[0],
			}
			if vars != nil {
				params["variables"] = vars
			}
			if startFrom != "" {
				params["start_from_step"] = startFrom
			}
			if stopAt != "" {
				params["stop_at_step"] = stopAt
			}
			return dispatch(cmd, v, params)
		},
	}
	cmd.Flags().StringArrayVar(&varFlags, "var", nil, "runtime variable override (name=value, repeatable)")
	cmd.Flags().StringVar(&startFrom, "start-from-step", "", "step ID to start from")
	cmd.Flags().StringVar(&stopAt, "stop-at-step", "", "step ID to stop before")
	return cmd
}

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, v, map[string]any{"action": "list"})
		},
	}
}

func newDescribeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <workflow>",
		Short: "Show detailed information about a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, v, map[string]any{"action": "describe", "workflow_name": args[0]})
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Validate a workflow without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, v, map[string]any{"action": "validate", "workflow_name": args[0]})
		},
	}
}

func newDryRunCmd(v *viper.Viper) *cobra.Command {
	var varFlags []string
	cmd := &cobra.Command{
		Use:   "dry-run <workflow>",
		Short: "Show what a workflow would do without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVariables(varFlags)
			if err != nil {
				return err
			}
			params := map[string]any{
				"action":        "dry_run",
				"workflow_name": args[0],
			}
			if vars != nil {
				params["variables"] = vars
			}
			return dispatch(cmd, v, params)
		},
	}
	cmd.Flags().StringArrayVar(&varFlags, "var", nil, "runtime variable override (name=value, repeatable)")
	return cmd
}
