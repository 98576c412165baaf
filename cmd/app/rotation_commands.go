package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keycore/cmd/app/commands"
	"github.com/allisson/keycore/internal/app"
	"github.com/allisson/keycore/internal/config"
)

func getRotationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-settings",
			Usage: "Provision a master key and security settings for a new principal",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "principal-id",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Principal ID (UUID)",
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

				provisioningUseCase, err := container.ProvisioningUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateSettings(
					ctx,
					provisioningUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("principal-id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-master-key",
			Usage: "Rotate a principal's master key and rewrap its document data keys",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "principal-id",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Principal ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateMasterKey(
					ctx,
					rotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("principal-id"),
				)
			},
		},
		{
			Name:  "rotate-document-key",
			Usage: "Rotate a document's data key and re-encrypt its payload",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "document-id",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Document ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateDocumentKey(
					ctx,
					rotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("document-id"),
				)
			},
		},
		{
			Name:  "check-rotation-needs",
			Usage: "Scan for master keys and data keys past their policy age",
			Flags: []cli.Flag{
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

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunCheckRotationNeeds(
					ctx,
					rotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-due",
			Usage: "Execute every rotation the policy scan finds due",
			Flags: []cli.Flag{
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

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateDue(
					ctx,
					rotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "reap-keys",
			Usage: "Delete retired keys whose deletion grace period has elapsed",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				reaperUseCase, err := container.ReaperUseCase()
				if err != nil {
					return err
				}

				return commands.RunReapKeys(
					ctx,
					reaperUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
				)
			},
		},
	}
}
