package main

// Run executes the run command: sync, then enrich, then build. An
// interrupted enrichment pass still writes the catalog of what completed
// before the error is returned.
func (c *RunCmd) Run(deps *Dependencies) error {
	if _, err := runSync(deps, c.Refresh, 0); err != nil {
		return err
	}

	result, err := runEnrich(deps, enrichOptions{
		RetryFailed: c.RetryFailed,
		Prune:       c.Prune,
		Workers:     c.Workers,
	})
	if result == nil {
		return err
	}

	if werr := writeCatalog(deps, result.Records); werr != nil {
		return werr
	}
	return err
}
