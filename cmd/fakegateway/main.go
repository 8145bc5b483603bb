package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/callscreen-client/gateway/gatewayfake"
	"github.com/jrsteele09/callscreen-client/internal/logging"
	"github.com/jrsteele09/callscreen-client/internal/utils"
	"github.com/jrsteele09/callscreen-client/tenants"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("fake gateway failed")
	}
	log.Info().Msg("fake gateway stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	addr := flag.String("addr", ":8080", "listen address")
	tokenTTL := flag.Duration("token-ttl", time.Hour, "lifetime of issued credentials")
	seedPhone := flag.String("seed-phone", "", "phone number of an account to create at start-up")
	seedTenant := flag.String("seed-tenant", "", "organisation name for the seeded account; empty leaves it unonboarded")
	seedAdmin := flag.Bool("seed-admin", false, "grant the seeded account admin rights")
	flag.Parse()

	logging.New(os.Getenv("LOG_LEVEL"), "DEV")
	displayAppname("Fake Gateway")

	fake := gatewayfake.New(gatewayfake.WithTokenTTL(*tokenTTL), gatewayfake.WithLogger(logging.Component("fakegateway")))
	if *seedPhone != "" {
		var tenant *tenants.Tenant
		if *seedTenant != "" {
			tenant = utils.Ptr(tenants.Tenant{ID: uuid.NewString(), Name: *seedTenant})
		}
		identity := fake.AddAccount(*seedPhone, tenant, *seedAdmin)
		log.Info().Str("user_id", identity.ID).Str("phone", identity.Phone).Msg("seeded account")
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           fake,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("fake gateway listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}
	return nil
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
