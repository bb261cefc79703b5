// Command crabbot runs the chat bot webhook server: one HTTP surface serving
// the VK Callback API and the Telegram bot webhook, backed by a SQLite
// directory of known chats and users.
package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/crabbro/crabbot/internal/config"
	"github.com/crabbro/crabbot/internal/dedup"
	"github.com/crabbro/crabbot/internal/directory"
	"github.com/crabbro/crabbot/internal/domain"
	httpapi "github.com/crabbro/crabbot/internal/http"
	"github.com/crabbro/crabbot/internal/http/handlers"
	"github.com/crabbro/crabbot/internal/observability"
	"github.com/crabbro/crabbot/internal/providers"
	"github.com/crabbro/crabbot/internal/repo"
	"github.com/crabbro/crabbot/internal/router"
	"github.com/crabbro/crabbot/internal/send"
	"github.com/crabbro/crabbot/internal/sysutil"
)

// version is stamped via -ldflags at build time.
var version = "dev"

// directoryStore adapts the repository free functions to the directory.Store
// interface. This keeps the directory decoupled from the concrete repo
// package while reusing existing functions.
type directoryStore struct{}

func (directoryStore) UpsertChat(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, seenAt time.Time) error {
	return repo.UpsertChat(ctx, db, platform, chatID, seenAt)
}

func (directoryStore) UpsertChatUser(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID, userID int64, displayName string, seenAt time.Time) error {
	return repo.UpsertChatUser(ctx, db, platform, chatID, userID, displayName, seenAt)
}

func (directoryStore) ListKnownChats(ctx context.Context, db *gorm.DB) ([]domain.KnownChat, error) {
	return repo.ListKnownChats(ctx, db)
}

func (directoryStore) ListAllChatUsers(ctx context.Context, db *gorm.DB) ([]domain.ChatUser, error) {
	return repo.ListAllChatUsers(ctx, db)
}

func (directoryStore) CreateAssignment(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string, userID int64, title string) error {
	return repo.CreateAssignment(ctx, db, platform, chatID, day, userID, title)
}

func (directoryStore) ListAssignedUserIDs(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string) ([]int64, error) {
	return repo.ListAssignedUserIDs(ctx, db, platform, chatID, day)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Info().Str("version", version).Msg("starting crabbot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.Timezone).Msg("invalid timezone")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing setup failed")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	dir := directory.New(db, directoryStore{}, log.Logger)
	if err := dir.WarmUp(ctx); err != nil {
		log.Warn().Err(err).Msg("directory warm-up failed, starting cold")
	}

	typing := send.Typing{Min: cfg.TypingDelayMin, Max: cfg.TypingDelayMax}
	out := &send.Multiplexer{}
	if cfg.VK.Token != "" {
		out.VK = &send.VKSender{
			Client: send.NewVKClient(cfg.VK.Token),
			Typing: typing,
			Log:    log.Logger,
		}
	}
	if cfg.TG.Token != "" {
		bot, err := telego.NewBot(cfg.TG.Token, telego.WithDiscardLogger())
		if err != nil {
			log.Fatal().Err(err).Msg("telegram bot init failed")
		}
		out.TG = send.NewTGSender(bot, typing, log.Logger)
	}

	rt := buildRouter(cfg, db, dir, out, loc)

	h := &handlers.Handler{
		Dedup:          dedup.NewLedger(cfg.DedupTTL),
		Dir:            dir,
		Router:         rt,
		Out:            out,
		VKSecret:       cfg.VK.Secret,
		VKConfirmation: cfg.VK.Confirmation,
		TGSecret:       cfg.TG.WebhookSecret,
		SendTimeout:    cfg.SendTimeout,
		Log:            log.Logger,
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	h.Wait()
	dir.Wait()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}

// buildRouter loads the reply content and assembles the provider chain in
// priority order. Providers earlier in the chain win.
func buildRouter(cfg config.Config, db *gorm.DB, dir *directory.Directory, out *send.Multiplexer, loc *time.Location) *router.Router {
	deck := providers.LoadTarotDeck(cfg.DataDir)
	if len(deck) == 0 {
		log.Warn().Str("dir", cfg.DataDir).Msg("tarot deck is empty")
	}
	rules := providers.LoadRules(cfg.DataDir)
	angelMeanings := providers.LoadAngelMeanings(cfg.DataDir)
	lunarShort, lunarExtra := providers.LoadLunarTexts(cfg.DataDir)
	whoPhrases := providers.LoadWhoPhrases(cfg.DataDir)
	whoFallbacks := providers.LoadWhoFallbacks(cfg.DataDir)

	fetcher := providers.NewHoroscopeFetcher()
	horo := &providers.Horoscope{
		Pending: dedup.NewTTLSet(10 * time.Minute),
		Fetch:   fetcher.Fetch,
		Now:     time.Now,
		Loc:     loc,
		Log:     log.Logger,
	}

	return router.New(log.Logger,
		&providers.Admin{
			Chats:    dir,
			Out:      out,
			VKAdmins: cfg.VK.AdminIDs,
			TGAdmins: cfg.TG.AdminIDs,
			Log:      log.Logger,
		},
		&providers.HoroscopePending{H: horo},
		&providers.Tarot{
			Store: providers.TarotDB{DB: db},
			Deck:  deck,
			Now:   time.Now,
			Loc:   loc,
			Pick:  rand.Intn,
			Log:   log.Logger,
		},
		&providers.AngelTime{
			Store:    providers.AngelDB{DB: db},
			Meanings: angelMeanings,
			Now:      time.Now,
			Loc:      loc,
			Log:      log.Logger,
		},
		&providers.WhoToday{
			Dir:       dir,
			Phrases:   whoPhrases,
			Fallbacks: whoFallbacks,
			Now:       time.Now,
			Loc:       loc,
			Pick:      rand.Intn,
			Log:       log.Logger,
		},
		&providers.Lunar{
			Short: lunarShort,
			Extra: lunarExtra,
			Now:   time.Now,
			Loc:   loc,
		},
		horo,
		&providers.TimeReply{Now: time.Now, Loc: loc},
		&providers.Simple{Rules: rules, Pick: rand.Intn},
	)
}
