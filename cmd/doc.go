// Package cmd provides CLI commands for the Mastodon transport.
//
// # Commands
//
// gateway: Runs the transport gateway. Hosts covert links over a Mastodon
// instance and exposes a local HTTP control plane for link management,
// message sending, and content collection.
//
//	go run ./cmd/gateway --config=gateway.yaml
//	go run ./cmd/gateway --server=https://mastodon.example --token=... --link-side=creator
//
// linktool: Offline helper for link addresses. Generates fresh addresses
// and inspects serialized ones without talking to any server.
//
//	go run ./cmd/linktool generate --prefix=pqrstuv --seq=0
//	go run ./cmd/linktool inspect '{"hashtag":"pqrstuv0","maxTries":0,"timestamp":0}'
//
// # Configuration
//
// The gateway supports a YAML configuration file via the --config flag.
// Command-line flags override config file values.
//
// Example config:
//
//	listenAddr: "127.0.0.1:8090"
//	requestTimeout: 30s
//	mastodon:
//	  serverUrl: "https://mastodon.example"
//	  accessToken: "..."
//	transport:
//	  hashtagPrefix: "pqrstuv"
//	  maxLinks: 64
//	  linkSide: "both"
//	postgres:
//	  enabled: false
package cmd
