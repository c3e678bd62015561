package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LixenWraith/hiviz"
)

func newEmitCommand(ctx *commandContext) *cobra.Command {
	var levelFlag string
	var colorFlag string
	var fieldFlags []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "emit [message...]",
		Short: "Emit one record and wait for it to be written",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := hiviz.ParseLevel(levelFlag)
			if err != nil {
				return err
			}

			var extra []any
			if colorFlag != "" {
				c, err := hiviz.ParseColor(colorFlag)
				if err != nil {
					return err
				}
				extra = append(extra, c)
			}
			for _, f := range fieldFlags {
				key, value, ok := strings.Cut(f, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid --field %q: want key=value", f)
				}
				extra = append(extra, key, value)
			}

			logger, err := ctx.newLogger(nil)
			if err != nil {
				return err
			}
			logger.Log(cmd.Context(), level, strings.Join(args, " "), extra...)

			closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return logger.Close(closeCtx)
		},
	}

	cmd.Flags().StringVarP(&levelFlag, "level", "l", "info", "Record level (debug, info, warning, error, critical or a number)")
	cmd.Flags().StringVar(&colorFlag, "color", "", "Override the level color (red, green, blue, ...)")
	cmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "Context field as key=value (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Maximum time to wait for the record to be written")

	return cmd
}
