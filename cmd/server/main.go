package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/NicolasHaas/nforce/pkg/datastore"
	"github.com/NicolasHaas/nforce/pkg/discord"
	"github.com/NicolasHaas/nforce/pkg/logging"
	"github.com/NicolasHaas/nforce/pkg/moderation"
	"github.com/NicolasHaas/nforce/pkg/roblox"
	"github.com/NicolasHaas/nforce/pkg/server"
	"github.com/NicolasHaas/nforce/pkg/version"
)

func main() {
	cfg := server.DefaultConfig()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP API bind address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file path")
	flag.StringVar(&cfg.ModConfigFile, "config", "", "YAML file with guild/channel/role settings")
	flag.BoolVar(&cfg.Open, "open", false, "Serve the API without API-key auth (open server)")
	noBot := flag.Bool("no-bot", false, "Run the API without the Discord bot (reports will fail to deliver)")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	slog.Info("N-FORCE starting", "version", version.String())

	modCfg, err := loadModConfig(cfg.ModConfigFile)
	if err != nil {
		slog.Error("load mod config", "err", err)
		os.Exit(1)
	}

	st, err := datastore.NewProviderFactory(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	resolver := roblox.NewResolver()
	adapter := moderation.New(st, resolver, modCfg.ModRoleIDs)

	deps := server.Dependencies{Store: st, Adapter: adapter}
	if !*noBot {
		bot, err := discord.New(discord.Config{
			Token:           os.Getenv("DISCORD_BOT_TOKEN"),
			GuildID:         modCfg.GuildID,
			ReportChannelID: modCfg.ReportChannelID,
		}, adapter)
		if err != nil {
			slog.Error("create discord bot", "err", err)
			os.Exit(1)
		}
		if err := bot.Open(); err != nil {
			slog.Error("connect discord bot", "err", err)
			os.Exit(1)
		}
		defer func() { _ = bot.Close() }()
		deps.Notifier = bot
	}

	srv := server.New(cfg, deps)
	adapter.OnBanRecorded = func() { srv.Metrics().BansUpserted.Add(1) }
	adapter.OnUnbanRecorded = func() { srv.Metrics().BansDeleted.Add(1) }
	resolver.OnFallback = func() { srv.Metrics().LookupFallbacks.Add(1) }

	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// loadModConfig reads the YAML config when given, otherwise assembles one
// from environment variables (REPORT_CHANNEL_ID, GUILD_ID, MOD_ROLES_IDS).
func loadModConfig(path string) (server.ModConfig, error) {
	if path != "" {
		return server.LoadModConfig(path)
	}

	cfg := server.ModConfig{
		GuildID:         os.Getenv("GUILD_ID"),
		ReportChannelID: os.Getenv("REPORT_CHANNEL_ID"),
	}
	for _, id := range strings.Split(os.Getenv("MOD_ROLES_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.ModRoleIDs = append(cfg.ModRoleIDs, id)
		}
	}
	if err := cfg.Validate(); err != nil {
		return server.ModConfig{}, err
	}
	return cfg, nil
}
