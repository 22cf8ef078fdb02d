package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"smart-planner/internal/config"
	"smart-planner/internal/deadline"
)

func newResolveCmd() *cobra.Command {
	var (
		nowFlag  string
		zoneFlag string
		scope    string
	)

	cmd := &cobra.Command{
		Use:   "resolve [expression...]",
		Short: "Print the deadline an expression or a scope resolves to",
		Example: `  smartplanner resolve tomorrow 18:00
  smartplanner resolve --now "2025-08-27 15:30" next mon
  smartplanner resolve --scope week`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if zoneFlag == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				zoneFlag = cfg.TimeZone
			}
			zone, err := deadline.LoadZone(zoneFlag)
			if err != nil {
				return err
			}

			now := time.Now()
			if nowFlag != "" {
				if now, err = zone.Parse(nowFlag); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}

			resolver := deadline.NewResolver(zone)
			out := cmd.OutOrStdout()

			if scope != "" {
				at, ok := resolver.ForScope(deadline.ParseScope(scope), now)
				if !ok {
					fmt.Fprintln(out, "no deadline")
					return nil
				}
				fmt.Fprintln(out, zone.Format(at))
				return nil
			}

			if len(args) == 0 {
				return errors.New("expression or --scope required")
			}
			at, err := resolver.Resolve(strings.Join(args, " "), now)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, zone.Format(at))
			return nil
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", `reference time "YYYY-MM-DD HH:MM" in the bot zone (default: current time)`)
	cmd.Flags().StringVar(&zoneFlag, "zone", "", "IANA time zone (default: BOT_TIMEZONE)")
	cmd.Flags().StringVar(&scope, "scope", "", "print the default deadline of today, week, month or free")
	return cmd
}
