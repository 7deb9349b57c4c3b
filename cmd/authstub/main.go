package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/server"
	"github.com/jrsteele09/go-session-client/server/authcoderepo"
	"github.com/jrsteele09/go-session-client/server/clientrepo"
	"github.com/jrsteele09/go-session-client/server/projectrepo"
	refreshrepofake "github.com/jrsteele09/go-session-client/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-session-client/users/repofake"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	config.LoadDotenv()
	c := config.New()
	setupLogging(c.GetLogLevel())
	displayAppname("Auth Stub")

	handler, err := server.New(c, server.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
		Projects:      projectrepo.NewInMemoryRepo(),
		AuthCodes:     authcoderepo.NewInMemoryRepo(),
		Clients:       clientrepo.NewInMemoryRepo(),
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{{Addr: c.GetStubAddr(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
	if addr := c.GetMetricsAddr(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			errs <- listenAndServe(srv)
		}(srv)
	}

	select {
	case err := <-errs:
		returnError = err
	case <-waitForStopSignal():
	}
	for _, srv := range servers {
		if err := shutdown(srv); err != nil && returnError == nil {
			returnError = err
		}
	}
	return returnError
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
