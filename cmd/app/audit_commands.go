package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keycore/cmd/app/commands"
	"github.com/allisson/keycore/internal/app"
	"github.com/allisson/keycore/internal/config"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "acknowledge-alert",
			Usage: "Mark a security alert as handled",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "alert-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Alert ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				auditUseCase, err := container.AuditUseCase()
				if err != nil {
					return err
				}

				return commands.RunAcknowledgeAlert(
					ctx,
					auditUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("alert-id"),
				)
			},
		},
		{
			Name:  "dispatch-alerts",
			Usage: "Deliver one batch of pending security alerts to the configured publishers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				dispatcher, err := container.AlertDispatcher(ctx)
				if err != nil {
					return err
				}

				return commands.RunDispatchAlerts(
					ctx,
					dispatcher,
					container.Logger(),
					commands.DefaultIO().Writer,
				)
			},
		},
		{
			Name:  "security-metrics",
			Usage: "Aggregate the security log over a trailing window",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "window",
					Aliases: []string{"w"},
					Value:   "24h",
					Usage:   "Trailing window as a Go duration (e.g., 24h, 30m)",
				},
				&cli.IntFlag{
					Name:    "top",
					Aliases: []string{"t"},
					Value:   10,
					Usage:   "Number of top IPs and principals to report",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				auditUseCase, err := container.AuditUseCase()
				if err != nil {
					return err
				}

				return commands.RunSecurityMetrics(
					ctx,
					auditUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("window"),
					int(cmd.Int("top")),
					cmd.String("format"),
				)
			},
		},
	}
}
