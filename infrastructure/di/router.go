package di

import (
	"fmt"
	"net/http"

	"humaneval/interfaces/http/rest"
)

// Handler builds the HTTP handler shared by the server and Lambda entrypoints
func (c *Container) Handler() http.Handler {
	router := rest.NewRouter(
		c.CommandBus,
		c.QueryBus,
		c.Metrics,
		c.Tracer,
		rest.Options{
			EnableCORS:     c.Config.EnableCORS,
			AllowedOrigins: c.Config.CORSAllowedOrigins,
			Debug:          c.Config.IsDevelopment(),
			Ready:          c.ready,
		},
		c.Logger,
	)
	return router.Setup()
}

func (c *Container) ready() error {
	if c.Catalog.Len() < c.Config.SampleSize {
		return fmt.Errorf("catalog has %d items, sample size is %d", c.Catalog.Len(), c.Config.SampleSize)
	}
	return nil
}
