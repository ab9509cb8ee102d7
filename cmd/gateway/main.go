// Command gateway runs the Mastodon transport gateway.
//
// The gateway hosts covert links over a Mastodon instance and exposes a
// local HTTP control plane to create and load links, send messages, and
// collect received content.
//
// # Link exchange
//
// A creator-side gateway mints a link address (POST /api/v1/links) and the
// serialized address is handed to the peer out of band. The peer's gateway
// loads it (POST /api/v1/links/load), after which both sides post and fetch
// against the same hashtag.
//
// # Usage
//
//	go run ./cmd/gateway --config=gateway.yaml
//
// Flags override values from the config file.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tst-race/mastodon-transport/api/httpserver"
	"github.com/tst-race/mastodon-transport/gateway"
	"github.com/tst-race/mastodon-transport/mastodon"
	"github.com/tst-race/mastodon-transport/store"
)

// addressList collects repeated --recv-address flags.
type addressList []string

func (l *addressList) String() string { return strings.Join(*l, ",") }

func (l *addressList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var recvAddresses addressList
	flag.Var(&recvAddresses, "recv-address", "Peer link address to load at startup (repeatable)")

	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		addr          = flag.String("addr", "", "HTTP listen address (overrides config)")
		serverURL     = flag.String("server", "", "Mastodon instance URL (overrides config)")
		accessToken   = flag.String("token", "", "Mastodon access token (overrides config)")
		hashtagPrefix = flag.String("hashtag-prefix", "", "Prefix for generated link hashtags (overrides config)")
		linkSide      = flag.String("link-side", "", "Link role: creator, loader, or both (overrides config)")
		maxLinks      = flag.Int("max-links", -1, "Maximum simultaneous links, 0 for unlimited (overrides config)")
		enablePprof   = flag.Bool("pprof", false, "Enable the pprof API")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := gateway.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = gateway.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *serverURL != "" {
		cfg.Mastodon.ServerURL = *serverURL
	}
	if *accessToken != "" {
		cfg.Mastodon.AccessToken = *accessToken
	}
	if *hashtagPrefix != "" {
		cfg.Transport.HashtagPrefix = *hashtagPrefix
	}
	if *linkSide != "" {
		cfg.Transport.LinkSide = *linkSide
	}
	if *maxLinks >= 0 {
		cfg.Transport.MaxLinks = *maxLinks
	}
	if *enablePprof {
		cfg.EnablePprof = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	var book store.AddressBook
	if cfg.Postgres.Enabled {
		pgStore, err := store.NewPostgresStore(&cfg.Postgres.PostgresConfig)
		if err != nil {
			fmt.Printf("Address book error: %v\n", err)
			os.Exit(1)
		}
		book = pgStore
	} else {
		book = store.NewInMemoryStore()
	}
	defer book.Close()

	poster := mastodon.NewClient(cfg.Mastodon, log)
	gw := gateway.New(cfg, poster, book, log)

	if err := gw.RestoreLinks(); err != nil {
		fmt.Printf("Restore error: %v\n", err)
		os.Exit(1)
	}

	for _, addr := range recvAddresses {
		info, err := gw.LoadLink("", addr)
		if err != nil {
			fmt.Printf("Load address error: %v\n", err)
			os.Exit(1)
		}
		log.Info("loaded peer link", "link", info.LinkID)
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.ListenAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            cfg.DrainDuration.Std(),
		GracefulShutdownDuration: cfg.GracefulShutdownDuration.Std(),
	}, gateway.NewHandler(gw))
	if err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}

	srv.RunInBackground()
	log.Info("gateway started", "listenAddr", cfg.ListenAddr, "server", cfg.Mastodon.ServerURL,
		"linkSide", cfg.Transport.LinkSide)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	srv.Shutdown()
}
