package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/ai"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/config"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/report"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/scheduler"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/telegram"
)

// Cron schedules, all in UTC.
const (
	weeklyReportSpec   = "30 22 * * 0" // Sunday 22:30
	weeklyFallbackSpec = "0 8 * * 1"   // Monday 08:00, catches missed Sunday runs
	retrySweepSpec     = "0 */6 * * *" // every 6 hours
	adminSummarySpec   = "0 10 * * *"  // daily 10:00
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	reports *report.Service
	cron    *cron.Cron
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting moody-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("model", a.cfg.OpenRouterModel),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	generator := ai.New(a.cfg.OpenRouterAPIKey, a.cfg.OpenRouterBaseURL, a.cfg.OpenRouterModel, a.log)

	// The report service delivers through the router and the router triggers
	// on-demand generation, so the router is wired in last via closures.
	var router *telegram.Router
	adminNotifier := report.NewAdminNotifier(a.repo, adminSenderFunc(func(text string) error {
		return router.NotifyAdmin(text)
	}), a.log)
	a.reports = report.NewService(a.repo, generator, userNotifierFunc(func(userID int64, text string) error {
		return router.NotifyUser(userID, text)
	}), adminNotifier, a.log)
	router = telegram.NewRouter(a.bot, a.log, a.repo, a.reports, a.cfg.AdminUserID, a.cfg.DefaultTZ, a.cfg.MaxUsers)
	a.router = router

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(a.repo, a.router, a.log)
	go sched.Run(ctx)

	if err := a.startCron(ctx, adminNotifier); err != nil {
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// startCron registers the fixed UTC jobs: the weekly report run with its
// Monday fallback, the failed-report retry sweep and the daily admin summary.
func (a *App) startCron(ctx context.Context, adminNotifier *report.AdminNotifier) error {
	a.cron = cron.New(cron.WithLocation(time.UTC))

	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{weeklyReportSpec, "weekly_reports", func() { a.reports.RunWeekly(ctx, time.Now().UTC()) }},
		{weeklyFallbackSpec, "weekly_fallback", func() { a.reports.RunWeekly(ctx, time.Now().UTC()) }},
		{retrySweepSpec, "retry_sweep", func() { a.reports.ProcessRetries(ctx, time.Now().UTC()) }},
		{adminSummarySpec, "admin_summary", func() { adminNotifier.DailySummary(ctx, time.Now().UTC()) }},
	}
	for _, j := range jobs {
		if _, err := a.cron.AddFunc(j.spec, j.fn); err != nil {
			a.log.Error("register cron job", zap.String("job", j.name), zap.Error(err))
			return err
		}
		a.log.Info("cron job registered", zap.String("job", j.name), zap.String("spec", j.spec))
	}

	a.cron.Start()
	return nil
}

func (a *App) shutdown() {
	if a.cron != nil {
		cronCtx := a.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(10 * time.Second):
			a.log.Warn("cron jobs did not finish in time")
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// adminSenderFunc adapts a closure to report.AdminSender.
type adminSenderFunc func(text string) error

func (f adminSenderFunc) NotifyAdmin(text string) error { return f(text) }

// userNotifierFunc adapts a closure to report.UserNotifier.
type userNotifierFunc func(userID int64, text string) error

func (f userNotifierFunc) NotifyUser(userID int64, text string) error { return f(userID, text) }
