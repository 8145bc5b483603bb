package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/jrsteele09/callscreen-client/credentials/redisstore"
	"github.com/jrsteele09/callscreen-client/gateway"
	"github.com/jrsteele09/callscreen-client/internal/config"
	"github.com/jrsteele09/callscreen-client/internal/logging"
	"github.com/jrsteele09/callscreen-client/routes"
	"github.com/jrsteele09/callscreen-client/session"
	"github.com/jrsteele09/callscreen-client/users"
)

const usage = `usage: callscreen [-config file] [-metrics addr] <command> [flags]

commands:
  login -phone <number> [-code <code>]   sign in with a texted verification code
  status                                 restore the session and print it
  logout                                 end the session
  watch [-refresh <interval>]            print every session change until interrupted
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("callscreen failed")
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	global := flag.NewFlagSet("callscreen", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "", "path to a TOML configuration file")
	metricsAddr := global.String("metrics", "", "serve Prometheus metrics on this address")
	if err := global.Parse(args); err != nil || global.NArg() == 0 {
		return errUsage
	}

	c, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.New(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	gw := gateway.New(c.GetAPIBaseURL(), gateway.WithTimeout(c.GetRequestTimeout()))
	ctrl := session.New(store, gw,
		session.WithRenewalInterval(c.GetRenewalInterval()),
		session.WithRequestTimeout(c.GetRequestTimeout()),
		session.WithMetrics(session.NewMetrics(registry)),
	)
	defer ctrl.Close()

	if *metricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go listenAndServe(metricsServer)
		defer shutdown(metricsServer)
	}

	command, commandArgs := global.Arg(0), global.Args()[1:]
	switch command {
	case "login":
		return login(ctx, ctrl, gw, commandArgs)
	case "status":
		return status(ctx, ctrl)
	case "logout":
		ctrl.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	case "watch":
		return watch(ctx, ctrl, commandArgs)
	default:
		return errUsage
	}
}

// openStore picks Redis when a URL is configured and the credential file otherwise.
func openStore(ctx context.Context, c config.Config) (credentials.Store, func(), error) {
	if url := c.GetRedisURL(); url != "" {
		client, err := redisstore.NewClient(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		store, err := redisstore.New(ctx, client, c.GetRedisKey(), redisstore.WithOpTimeout(c.GetRequestTimeout()))
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Debug().Str("key", c.GetRedisKey()).Msg("using redis credential store")
		return store, func() { client.Close() }, nil
	}

	store, err := credentials.OpenFileStore(c.GetCredentialFile())
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("path", store.Path()).Msg("using file credential store")
	return store, func() {}, nil
}

func login(ctx context.Context, ctrl *session.Controller, gw *gateway.Client, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	phone := flags.String("phone", "", "phone number in international format, e.g. +420123456789")
	code := flags.String("code", "", "verification code already received; skips sending a new one")
	if err := flags.Parse(args); err != nil || *phone == "" {
		return errUsage
	}

	if *code == "" {
		if err := gw.SendCode(ctx, *phone); err != nil {
			return err
		}
		fmt.Printf("Verification code sent to %s.\nCode: ", users.NormalizePhone(*phone))
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read code: %w", err)
		}
		*code = strings.TrimSpace(line)
	}

	grant, err := gw.VerifyCode(ctx, *phone, *code)
	if err != nil {
		return err
	}
	needsOnboarding, err := ctrl.Login(grant.Credential(), grant.User)
	if err != nil {
		return err
	}
	ctrl.Wait()

	printState(ctrl.State())
	if needsOnboarding {
		fmt.Println("\nThis account has no organisation yet. Finish onboarding to start screening calls.")
	}
	return nil
}

func status(ctx context.Context, ctrl *session.Controller) error {
	err := ctrl.Init(ctx)
	switch {
	case gateway.IsTransient(err):
		log.Warn().Err(err).Msg("server unreachable, session kept for the next refresh")
	case gateway.IsCredentialInvalid(err):
		fmt.Println("The stored session has expired. Log in again.")
	case err != nil:
		return err
	}
	printState(ctrl.State())
	return nil
}

// watch prints the session every time it changes. The controller keeps the
// credential renewed for as long as it runs.
func watch(ctx context.Context, ctrl *session.Controller, args []string) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	refresh := flags.Duration("refresh", time.Minute, "how often to re-read the profile; 0 disables")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	go func() {
		if err := ctrl.Init(ctx); err != nil {
			log.Warn().Err(err).Msg("session restore failed")
		}
		if *refresh <= 0 {
			return
		}
		ticker := time.NewTicker(*refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ctrl.RefreshUser(ctx); err != nil {
					log.Warn().Err(err).Msg("profile refresh failed")
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}
			fmt.Printf("--- %s\n", time.Now().Format(time.TimeOnly))
			printState(s)
		}
	}
}

func printState(s session.State) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "phase:\t%s\n", s.Phase)
	if s.Identity != nil {
		fmt.Fprintf(w, "user:\t%s (%s)\n", s.Identity.Name(), s.Identity.Phone)
	}
	if s.Tenant != nil {
		fmt.Fprintf(w, "organisation:\t%s (%s)\n", s.Tenant.Name, s.Tenant.ID)
	}
	if s.Authenticated() {
		onboarding := "done"
		switch {
		case s.OnboardingInProgress:
			onboarding = "in progress"
		case s.NeedsOnboarding:
			onboarding = "required"
		}
		fmt.Fprintf(w, "onboarding:\t%s\n", onboarding)
		fmt.Fprintf(w, "admin:\t%t\n", s.IsPrivileged)
	}
	if home := routes.Home(s); home != "" {
		fmt.Fprintf(w, "home:\t%s\n", home)
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("metrics listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
