// Package server implements a mock of the gateway's configuration service.
//
// The mock serves the same REST surface as a T8000 gateway on port 9000,
// backed by an in-memory Store. It exists for offline development of the
// wizards and for tests: every write is recorded and failures can be
// injected per call.
//
// # Endpoints
//
//	GET    /api/models                  POST /api/models
//	GET    /api/parameters              POST /api/parameters
//	POST   /api/modbus-configs
//	GET    /api/devices                 POST /api/devices
//	GET    /api/devices/:id             PATCH /api/devices/:id
//	DELETE /api/devices/:id
//	GET    /api/devices/:id/parameters
//	POST   /api/dev-param-maps          DELETE /api/dev-param-maps/:id
//	POST   /api/rules
//	GET    /api/overview
//	POST   /api/login                   GET /api/me
//	GET    /api/events (websocket)
//
// Rejected calls answer with a JSON body {"success": false, "error": "..."}
// and a 400, 404, 409 or 500 status.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 9000, LogLevel: "info"}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until shutdown signal or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM signals for graceful shutdown:
// in-flight requests finish and event streams receive a going-away close
// frame.
//
// # Failure Injection
//
//	store := server.NewFixtureStore()
//	store.FailNext("CreateParameter", errors.New("disk full"))
//
// The next CreateParameter call fails with that error; over HTTP it is a
// 500 carrying the message.
package server
