package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/gate"
	"github.com/jrsteele09/go-auth-client/gateway"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/users"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("client failed")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	store := session.NewStore()
	authGate := gate.New(store)

	gw, err := gateway.New(store, c, gateway.WithSessionExpiredHook(func() {
		log.Info().Str("redirect", gate.LoginPath).Msg("session ended, returning to login")
	}))
	if err != nil {
		return err
	}

	userService, err := users.New(gw)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(store, gw, userService)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authService.Initialize(ctx)
	log.Info().Stringer("state", authGate.Current()).Msg("startup complete")

	if authGate.Current() == gate.StateServiceError {
		return errors.New(store.Snapshot().InitializationError)
	}

	if authGate.Current() == gate.StateUnauthenticated {
		email := os.Getenv("LOGIN_EMAIL")
		password := os.Getenv("LOGIN_PASSWORD")
		if email == "" {
			log.Info().Msg("no session and no LOGIN_EMAIL/LOGIN_PASSWORD provided, nothing to do")
			return nil
		}
		result, err := authService.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		log.Info().Str("user", result.Principal.FullName()).Str("message", result.Message).Msg("logged in")
	}

	if err := showAccount(ctx, userService); err != nil {
		return err
	}

	if os.Getenv("LOGOUT") == "true" {
		if err := authService.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("server logout failed, local session cleared")
		}
		log.Info().Stringer("state", authGate.Current()).Msg("logged out")
	}
	return nil
}

// showAccount fetches the principal and the user directory in parallel to
// demonstrate concurrent calls sharing one credential.
func showAccount(ctx context.Context, userService *users.Service) error {
	var (
		me   *session.Principal
		list []session.Principal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = userService.Current(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		list, _, err = userService.List(gctx, 1, 10)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetching account data: %w", err)
	}

	log.Info().Str("email", me.Email).Str("role", me.Role.Name).
		Time("last_login", utils.Value(me.LastLoginAt)).
		Int("visible_users", len(list)).
		Msg("account")
	return nil
}

func setupLogging(c config.Config) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.GetEnv() == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
