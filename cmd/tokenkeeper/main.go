package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-tokenkeeper/credential"
	"github.com/jrsteele09/go-tokenkeeper/internal/config"
	"github.com/jrsteele09/go-tokenkeeper/lifecycle"
	"github.com/jrsteele09/go-tokenkeeper/oauthclient"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
	"github.com/jrsteele09/go-tokenkeeper/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const discoveryRetryPeriod = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running token keeper")
	}
	log.Info().Msg("Token keeper stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := openBackend(ctx, c)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeBackend()

	client := oauthclient.New(oauthclient.WithHTTPClient(newHTTPClient(c)))

	opts := []token.ManagerOption{
		token.WithStorageKey(c.GetStorageKey()),
		token.WithRefreshBuffer(c.GetRefreshBuffer()),
		token.WithOnChange(logCredentialChange),
	}
	if c.GetAutoRefreshDisabled() {
		opts = append(opts, token.WithAutoRefreshDisabled())
	}
	manager := token.New(securestore.NewCodec(backend), client, opts...)
	defer manager.Close()

	manager.Initialize(ctx)
	if err := importInitialCredential(ctx, manager, c.GetInitialCredentialFile()); err != nil {
		log.Err(err).Msg("Failed to import initial credential")
	}

	go discover(ctx, manager, client, c)

	lifecycleLog := log.With().Str("component", "lifecycle").Logger()
	states := lifecycle.NewBroadcaster()
	reconciler := lifecycle.NewReconciler(ctx, manager, states, lifecycle.WithLogger(lifecycleLog))
	defer reconciler.Close()

	stopSuspend := lifecycle.NotifyProcessSuspend(ctx, states, lifecycleLog)
	defer stopSuspend()

	if interval := c.GetWakeCheckInterval(); interval > 0 {
		wake := lifecycle.NewWakeDetector(states,
			lifecycle.WithWakeInterval(interval),
			lifecycle.WithWakeLogger(lifecycleLog),
		)
		go wake.Run(ctx)
	}

	waitForStopSignal(ctx, manager)
	return nil
}

// discover resolves the issuer's endpoints, retrying until it succeeds, then
// hands them to the manager.
func discover(ctx context.Context, manager *token.Manager, client *oauthclient.Client, c config.Config) {
	issuer := c.GetIssuerURL()
	if issuer == "" {
		log.Warn().Msg("OAUTH_ISSUER_URL not set, refresh and revocation are disabled")
		return
	}

	cfg := oauthclient.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		Scopes:       c.GetScopes(),
	}

	for {
		d, err := oauthclient.Discover(ctx, client.HTTPClient(), issuer, c.GetRevocationURL())
		if err == nil {
			manager.Configure(cfg, d)
			return
		}
		log.Err(err).Str("issuer", issuer).Dur("retry_in", discoveryRetryPeriod).Msg("Discovery failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(discoveryRetryPeriod):
		}
	}
}

// waitForStopSignal blocks until SIGINT or SIGTERM. SIGUSR1 logs out.
func waitForStopSignal(ctx context.Context, manager *token.Manager) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for sig := range sigs {
		if sig == syscall.SIGUSR1 {
			log.Info().Msg("Logout requested")
			manager.SetCurrent(ctx, nil)
			continue
		}
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		return
	}
}

func logCredentialChange(c *credential.Credential) {
	if c == nil {
		log.Info().Msg("Logged out")
		return
	}
	e := log.Info().Str("token_type", c.TokenType)
	if at, ok := c.RefreshAt(0); ok {
		e = e.Time("expires_at", at)
	}
	if claims, err := credential.ParseClaims(c.AccessToken); err == nil && claims.Sub != nil {
		e = e.Str("sub", *claims.Sub)
	}
	e.Msg("Credential updated")
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
