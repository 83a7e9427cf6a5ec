package main

import (
	"fmt"

	"github.com/fwojciec/starcat"
	starcathttp "github.com/fwojciec/starcat/http"
)

// Run executes the serve command. It blocks until the context is canceled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	engine, closeIndex, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer closeIndex()

	addr := deps.Config.Serve.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	server := starcathttp.NewServer()
	server.Addr = addr
	server.QueryService = engine
	server.Logger = deps.Logger

	if err := server.Open(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Serving %d repositories at %s/api/records\n", engine.Summary().Total, server.URL())

	<-deps.Ctx.Done()
	deps.Logger.Info("shutting down")
	return server.Close()
}
