package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LixenWraith/hiviz"
)

func newEnvCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the options in effect after config and --set overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := cfg.Options()
			overrides, err := ctx.overrides()
			if err != nil {
				return err
			}
			for _, o := range overrides {
				o(&opts)
			}

			out := cmd.OutOrStdout()
			effective := opts.Config()
			switch format {
			case "table":
				fmt.Fprintln(out, renderTable([]string{"Option", "Value"}, optionRows(opts), nil))
			case "toml":
				data, err := toml.Marshal(effective)
				if err != nil {
					return fmt.Errorf("encode toml: %w", err)
				}
				fmt.Fprint(out, string(data))
			case "yaml":
				data, err := yaml.Marshal(effective)
				if err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				fmt.Fprint(out, string(data))
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(effective)
			default:
				return fmt.Errorf("unknown format %q (want table, toml, yaml or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: table, toml, yaml or json")
	return cmd
}

func optionRows(o hiviz.Options) [][]string {
	return [][]string{
		{"term_level", o.TermLevel.String()},
		{"stderr_level", o.StderrLevel.String()},
		{"stderr_threshold", o.StderrThreshold().String()},
		{"file_level", o.FileLevel.String()},
		{"log", strconv.FormatBool(o.ToLog)},
		{"json_logs", strconv.FormatBool(o.JSONLogs)},
		{"log_file", o.LogFile},
		{"max_bytes", strconv.FormatInt(o.MaxBytes, 10)},
		{"backup_count", strconv.Itoa(o.BackupCount)},
		{"debug", strconv.FormatBool(o.ToDebug)},
		{"color", string(o.ColorMode)},
		{"term_flags", strconv.FormatInt(o.TermFlags, 2)},
		{"trace_depth", strconv.Itoa(o.TraceDepth)},
	}
}
