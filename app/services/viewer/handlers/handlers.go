// Package handlers contains the full set of handler functions and routes
// supported by the viewer.
package handlers

import (
	"net/http"
	"os"

	"github.com/ardanlabs/scalefree/business/web/mid"
	"github.com/ardanlabs/scalefree/foundation/web"
	"go.uber.org/zap"
)

// UIMux constructs an http.Handler with all application routes defined. The
// page connects to the events feed of the node at nodeHost.
func UIMux(shutdown chan os.Signal, log *zap.SugaredLogger, nodeHost string) (*web.App, error) {
	app := web.NewApp(
		shutdown,
		mid.Logger(log),
		mid.Errors(log),
		mid.Panics(),
		mid.Cors("*"),
	)

	// Register the index page for the website.
	ig, err := newIndex(nodeHost)
	if err != nil {
		return nil, err
	}
	app.Handle(http.MethodGet, "", "/", ig.handler)

	return app, nil
}
