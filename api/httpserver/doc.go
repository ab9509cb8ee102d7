// Package httpserver provides a reusable HTTP server implementation with
// common functionality for the transport gateway.
//
// The httpserver package implements a base HTTP server with standard health
// endpoints, graceful shutdown capabilities, and flexible routing. The
// gateway registers its control-plane endpoints through the RouteRegistrar
// interface and inherits the rest.
//
// # Key Components
//
//   - BaseServer: Core HTTP server with health checks and lifecycle management
//   - RouteRegistrar: Interface for components to register their routes with the server
//
// # Health and Diagnostics
//
// All servers built with BaseServer automatically include:
//
//   - Liveness Check: Simple endpoint to verify server is running (/livez)
//   - Readiness Check: Endpoint indicating if server is ready to accept requests (/readyz)
//   - Drain Control: Endpoints to prepare for graceful shutdown (/drain, /undrain)
//   - Profiling: Optional pprof debugging endpoints when enabled
//
// # Usage Example
//
//	// Implement the RouteRegistrar interface for your handler
//	func (h *MyHandler) RegisterRoutes(r chi.Router) {
//	    r.Get("/api/resource/{id}", h.HandleGetResource)
//	    r.Post("/api/resource", h.HandleCreateResource)
//	}
//
//	srv, _ := httpserver.New(config, handler)
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver
