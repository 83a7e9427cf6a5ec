package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/bleve"
	"github.com/fwojciec/starcat/facet"
)

// openEngine loads the stored catalog and builds the query engine over it.
// The returned close function releases the search index.
func openEngine(deps *Dependencies) (*facet.Engine, func() error, error) {
	catalog, err := deps.Catalogs.ReadCatalog(deps.Ctx)
	if err != nil {
		if starcat.ErrorCode(err) == starcat.ENOTFOUND {
			fmt.Fprintln(deps.Stderr, "error: no catalog found. Run 'starcat build' to create one.")
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		}
		return nil, nil, err
	}

	index, err := bleve.NewIndex(catalog.Records)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return nil, nil, err
	}
	return facet.NewEngine(catalog.Records, index), index.Close, nil
}

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	sortKey, err := starcat.ParseSortKey(c.Sort)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return err
	}

	engine, closeIndex, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer closeIndex()

	records, err := engine.Query(deps.Ctx, starcat.Query{
		Text:     strings.Join(c.Query, " "),
		Tags:     c.Tag,
		Taxonomy: c.Taxonomy,
		Sort:     sortKey,
		View:     starcat.ViewList,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return err
	}

	total := len(records)
	if c.Limit > 0 && len(records) > c.Limit {
		records = records[:c.Limit]
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if total == 0 {
		fmt.Fprintln(deps.Stdout, "No matching repositories.")
		return nil
	}

	for _, r := range records {
		fmt.Fprintf(deps.Stdout, "%s  ★ %d", r.ID, r.Stars)
		if r.Language != "" {
			fmt.Fprintf(deps.Stdout, "  %s", r.Language)
		}
		fmt.Fprintln(deps.Stdout)
		if r.Summary != "" {
			fmt.Fprintf(deps.Stdout, "    %s\n", truncate(r.Summary, 100))
		}
		if paths := r.TaxonomyStrings(); len(paths) > 0 {
			fmt.Fprintf(deps.Stdout, "    %s\n", strings.Join(paths, "; "))
		}
	}
	if total > len(records) {
		fmt.Fprintf(deps.Stdout, "\nShowing %d of %d matches\n", len(records), total)
	}
	return nil
}

// Run executes the tree command.
func (c *TreeCmd) Run(deps *Dependencies) error {
	engine, closeIndex, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer closeIndex()

	roots := engine.Taxonomy().Roots()
	if len(roots) == 0 {
		fmt.Fprintln(deps.Stdout, "Catalog has no categories.")
		return nil
	}

	engine.Taxonomy().Walk(func(path starcat.TaxonomyPath, n *starcat.TaxonomyNode) bool {
		fmt.Fprintf(deps.Stdout, "%s%s (%d)\n", strings.Repeat("  ", len(path)-1), n.Label, n.Count)
		return c.Depth <= 0 || len(path) < c.Depth
	})
	return nil
}

// Run executes the top command.
func (c *TopCmd) Run(deps *Dependencies) error {
	if c.Depth < 1 || c.Depth > starcat.MaxTaxonomyDepth {
		err := starcat.Errorf(starcat.EINVALID, "depth must be between 1 and %d", starcat.MaxTaxonomyDepth)
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return err
	}

	engine, closeIndex, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer closeIndex()

	table := engine.Summary().Taxonomy.AtDepth(c.Depth).Top(c.Limit)
	if len(table) == 0 {
		fmt.Fprintln(deps.Stdout, "Catalog has no categories.")
		return nil
	}
	for _, f := range table {
		fmt.Fprintf(deps.Stdout, "%5d  %s\n", f.Count, f.Key)
	}
	return nil
}
