package main

// @title           kb-sync API
// @version         1.0
// @description     Syncs resolved ServiceNow incidents and PDF manuals into pgvector collections.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "kb-sync",
		Usage:   "sync ServiceNow tickets and PDF documents into vector collections",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "optional YAML config file",
				Sources: cli.EnvVars("KBSYNC_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the sync scheduler",
				Action: serveAction,
			},
			{
				Name:  "sync",
				Usage: "run a sync once",
				Commands: []*cli.Command{
					{
						Name:   "tickets",
						Usage:  "fetch tickets created since the checkpoint",
						Action: syncTicketsAction,
					},
					{
						Name:      "pdf",
						Usage:     "ingest one or more PDF files",
						ArgsUsage: "<file...>",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "collection",
								Usage: "target collection (default: documents default collection)",
							},
						},
						Action: syncPDFAction,
					},
				},
			},
			{
				Name:  "checkpoint",
				Usage: "inspect or override the ticket checkpoint",
				Commands: []*cli.Command{
					{
						Name:   "get",
						Usage:  "show the last ticket update time",
						Action: checkpointGetAction,
					},
					{
						Name:      "set",
						Usage:     "override the last ticket update time",
						ArgsUsage: `"YYYY-MM-DD HH:MM:SS"`,
						Action:    checkpointSetAction,
					},
				},
			},
			{
				Name:  "collections",
				Usage: "manage collections",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list collections",
						Action: collectionsListAction,
					},
					{
						Name:      "delete",
						Usage:     "delete one collection, or all with --all",
						ArgsUsage: "[name]",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "all",
								Usage: "delete every collection",
							},
						},
						Action: collectionsDeleteAction,
					},
				},
			},
			{
				Name:  "token",
				Usage: "API token tools",
				Commands: []*cli.Command{
					{
						Name:  "issue",
						Usage: "sign a bearer token with AUTH_JWT_SECRET",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Usage:    "token subject",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "role",
								Usage: "admin or viewer",
								Value: "admin",
							},
							&cli.DurationFlag{
								Name:  "ttl",
								Usage: "token lifetime",
								Value: 24 * time.Hour,
							},
						},
						Action: tokenIssueAction,
					},
				},
			},
		},
	}
}
