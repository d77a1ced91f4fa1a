package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mizube/hibiki/internal/commands"
	"github.com/mizube/hibiki/internal/config"
	"github.com/mizube/hibiki/internal/handlers"
	"github.com/mizube/hibiki/internal/presence"
	"github.com/mizube/hibiki/pkg/deps"
	"github.com/mizube/hibiki/pkg/history"
	"github.com/mizube/hibiki/pkg/pipeline"
	"github.com/mizube/hibiki/pkg/player"
	"github.com/mizube/hibiki/pkg/resolver"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	checker := deps.NewChecker(cfg.DownloaderPath, cfg.TranscoderPath)
	if err := checker.CheckAll(); err != nil {
		log.Fatal().Err(err).Msg("missing external binaries")
	}

	hist, err := history.New(cfg.HistoryDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history database")
	}
	defer hist.Close()

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	presenceManager := presence.NewManager(dg)

	players := player.NewRegistry(player.Config{
		Connector:   player.NewDiscordConnector(dg),
		BufferBytes: cfg.PrebufferBytes,
		Streams: func(ctx context.Context, url string, targetBytes int64) (player.Stream, error) {
			return pipeline.Create(ctx, url, targetBytes, pipeline.Options{
				Downloader:    cfg.DownloaderPath,
				Transcoder:    cfg.TranscoderPath,
				BufferTimeout: cfg.PrebufferTimeout,
			})
		},
		OnSongStart: func(guildID string, song *player.Song) {
			presenceManager.SongStarted(guildID, song.Title)
			if err := hist.Record(guildID, song.Title, song.URL, song.RequestedBy); err != nil {
				log.Warn().Err(err).Str("guild", guildID).Msg("failed to record play history")
			}
		},
		OnSessionEnd: presenceManager.SessionEnded,
	})

	res := resolver.New(cfg.DownloaderPath)
	cmds := commands.New(res, players, hist)
	dg.AddHandler(handlers.NewInteractionHandler(cmds).Handle)

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected to Discord")
		presenceManager.SetIdle()
	})

	if err := dg.Open(); err != nil {
		log.Fatal().Err(err).Msg("failed to open Discord session")
	}

	if err := commands.Register(dg, cfg.DiscordAppID, cfg.GuildID); err != nil {
		dg.Close()
		log.Fatal().Err(err).Msg("failed to register slash commands")
	}

	log.Info().Msg("bot is running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	log.Info().Msg("shutting down")
	players.StopAll(shutdownTimeout)
	if err := dg.Close(); err != nil {
		log.Warn().Err(err).Msg("closing Discord session")
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
