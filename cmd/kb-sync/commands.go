package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/custodia-labs/kb-sync/internal/adapters/driven/auth"
	httpapi "github.com/custodia-labs/kb-sync/internal/adapters/driving/http"
	"github.com/custodia-labs/kb-sync/internal/config"
	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
	"github.com/custodia-labs/kb-sync/internal/core/services"
)

var (
	okLabel   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	nameLabel = color.New(color.FgCyan).SprintFunc()
)

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, openOptions{embeddings: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ticketSync, err := a.ticketSync(ctx)
	if err != nil {
		return err
	}

	var authService driving.AuthService
	if a.cfg.Auth.Enabled() {
		authService = services.NewAuthService(auth.NewAdapter(a.cfg.Auth.JWTSecret))
		a.logger.Info("api authentication enabled")
	} else {
		a.logger.Warn("AUTH_JWT_SECRET not set, api is open")
	}

	server := httpapi.NewServer(httpapi.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		Version:         version,
		LogDir:          a.cfg.Log.Dir,
		MaxUploadBytes:  a.cfg.Documents.MaxUploadBytes,
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		Logger:          a.logger,
	}, httpapi.Services{
		TicketSync:  ticketSync,
		Documents:   a.documentSync(),
		Checkpoints: a.checkpointService(),
		Collections: a.collectionAdmin(),
		Auth:        authService,
	}, a.db)

	if a.cfg.Sync.Interval > 0 {
		scheduler := services.NewScheduler(services.SchedulerConfig{
			Sync:       ticketSync,
			Logger:     a.logger.With("component", "scheduler"),
			Interval:   a.cfg.Sync.Interval,
			RunOnStart: a.cfg.Sync.RunOnStart,
			RunTimeout: a.cfg.Sync.RunTimeout,
		})
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer scheduler.Stop()
	} else {
		a.logger.Info("sync scheduler disabled")
	}

	return server.Start(ctx)
}

func syncTicketsAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, openOptions{embeddings: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ticketSync, err := a.ticketSync(ctx)
	if err != nil {
		return err
	}

	outcome := ticketSync.Run(ctx)
	if !outcome.Success {
		fmt.Printf("%s %s\n", failLabel("FAILED"), outcome.Message)
		return cli.Exit("", 1)
	}

	label := okLabel("OK")
	if outcome.SourceUnavailable {
		label = warnLabel("SKIPPED")
	}
	fmt.Printf("%s %s\n", label, outcome.Message)
	fmt.Printf("  collection:       %s\n", nameLabel(outcome.Collection))
	fmt.Printf("  tickets:          %d\n", outcome.TicketsProcessed)
	if outcome.LatestUpdateTime != "" {
		fmt.Printf("  last update time: %s (advanced: %v)\n", outcome.LatestUpdateTime, outcome.CheckpointAdvanced)
	}
	return nil
}

func syncPDFAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("at least one PDF file is required", 2)
	}

	a, err := openApp(ctx, cmd, openOptions{embeddings: true})
	if err != nil {
		return err
	}
	defer a.Close()

	docs := make([]domain.UploadedDocument, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, domain.UploadedDocument{Name: filepath.Base(p), Content: content})
	}

	failed := 0
	for _, r := range a.documentSync().SyncDocuments(ctx, docs, cmd.String("collection")) {
		switch r.Status {
		case domain.FileStatusSuccess:
			fmt.Printf("%s %s (%d chunks)\n", okLabel("OK"), r.Filename, r.ChunksStored)
		case domain.FileStatusSkipped:
			fmt.Printf("%s %s: %s\n", warnLabel("SKIPPED"), r.Filename, r.Error)
		default:
			failed++
			fmt.Printf("%s %s: %s\n", failLabel("FAILED"), r.Filename, r.Error)
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(docs)), 1)
	}
	return nil
}

func checkpointGetAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, openOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.checkpointService().Get(ctx, a.ticketCollection())
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", nameLabel(info.Collection), info.LastUpdateTime)
	return nil
}

func checkpointSetAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit(`usage: kb-sync checkpoint set "YYYY-MM-DD HH:MM:SS"`, 2)
	}

	a, err := openApp(ctx, cmd, openOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.checkpointService().Set(ctx, a.ticketCollection(), cmd.Args().First())
	if errors.Is(err, domain.ErrValidation) {
		return cli.Exit("invalid datetime format, expected YYYY-MM-DD HH:MM:SS", 2)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s %s set to %s\n", okLabel("OK"), nameLabel(info.Collection), info.LastUpdateTime)
	return nil
}

func collectionsListAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, openOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	collections, err := a.collectionAdmin().List(ctx)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		fmt.Println("no collections")
		return nil
	}
	for _, c := range collections {
		checkpoint := string(c.Checkpoint)
		if checkpoint == "" {
			checkpoint = "-"
		}
		fmt.Printf("%-24s %-8s %s\n", nameLabel(c.Name), c.Config.Space, checkpoint)
	}
	return nil
}

func collectionsDeleteAction(ctx context.Context, cmd *cli.Command) error {
	all := cmd.Bool("all")
	name := cmd.Args().First()
	if all == (name != "") {
		return cli.Exit("pass either a collection name or --all", 2)
	}

	a, err := openApp(ctx, cmd, openOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	admin := a.collectionAdmin()
	if all {
		deleted, err := admin.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s deleted all collections (%d total)\n", okLabel("OK"), len(deleted))
		return nil
	}

	if err := admin.Delete(ctx, name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return cli.Exit(fmt.Sprintf("collection %q not found", name), 1)
		}
		return err
	}
	fmt.Printf("%s deleted collection %s\n", okLabel("OK"), nameLabel(name))
	return nil
}

func tokenIssueAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"), cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Auth.Enabled() {
		return cli.Exit("AUTH_JWT_SECRET is not set", 2)
	}

	role := domain.Role(cmd.String("role"))
	if !role.IsValid() {
		return cli.Exit(fmt.Sprintf("unknown role %q", role), 2)
	}

	authService := services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret))
	token, err := authService.IssueToken(ctx, cmd.String("subject"), role, cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(cmd.Duration("ttl")).Format(time.RFC3339))
	return nil
}
