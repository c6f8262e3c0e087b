// Package debug hosts the optional info-providing utilities for a running
// host: a pprof server and wire message tracing.
package debug

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// StartPprofServer starts the default pprof HTTP server that can be accessed
// via localhost to get runtime information about the host.
// See https://golang.org/pkg/net/http/pprof/
func StartPprofServer(logger *logrus.Logger, port int) {
	listenerAddr := fmt.Sprintf("localhost:%d", port)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

// Tracer dumps decoded wire messages to the debug log when message logging
// is enabled. The zero value is a disabled tracer.
type Tracer struct {
	Logger  *logrus.Logger
	Enabled bool
}

// Trace logs one message with its direction ("send" or "recv") and the
// connection it traveled over.
func (t Tracer) Trace(connID, direction string, msg interface{}) {
	if !t.Enabled || t.Logger == nil {
		return
	}
	t.Logger.Debugf("[%s] %s %s", connID, direction, spew.Sdump(msg))
}
