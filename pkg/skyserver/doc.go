// Package skyserver exposes a single sky condition value (0 to 3) received from
// an external sensor process over a local socket or named pipe.
//
// A sensor connects to the endpoint and writes one base-10 integer per line.
// Valid values replace the current condition; invalid lines are logged and
// skipped. One client is served at a time; when it disconnects the server
// creates a fresh endpoint and waits for the next one.
//
// Example usage:
//
//	srv, err := skyserver.New(skyserver.DefaultConfig(),
//	    skyserver.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	if srv.Available() {
//	    fmt.Println(srv.SkyCondition())
//	}
package skyserver
