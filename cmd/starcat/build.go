package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/starcat"
)

// Run executes the build command.
func (c *BuildCmd) Run(deps *Dependencies) error {
	records, pending, err := assembleRecords(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return err
	}
	if pending.total() > 0 {
		fmt.Fprintf(deps.Stderr, "warning: %d repositories have no current enrichment (%d stale, %d never enriched). Run 'starcat enrich' to include them.\n",
			pending.total(), pending.stale, pending.unenriched)
	}
	return writeCatalog(deps, records)
}

// pendingCounts splits entries left out of a build by why they have no
// current enrichment.
type pendingCounts struct {
	stale      int
	unenriched int
}

func (p pendingCounts) total() int { return p.stale + p.unenriched }

// assembleRecords joins every stored entry with its current cached
// enrichment without calling the enricher. Entries without content get a
// degraded record and entries whose content cannot be read get a failed
// one. Entries whose content changed since their last enrichment, or that
// were never enriched, are left out and counted as pending.
func assembleRecords(deps *Dependencies) (records []*starcat.Record, pending pendingCounts, err error) {
	entries, err := deps.Entries.FindEntries(deps.Ctx, starcat.EntryFilter{})
	if err != nil {
		return nil, pending, err
	}

	for _, entry := range entries {
		content, found, err := deps.Contents.FindContent(deps.Ctx, entry.ID)
		if err != nil {
			err = fmt.Errorf("read content: %w", err)
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", entry.ID, err)
			records = append(records, &starcat.Record{
				Entry:      *entry,
				Enrichment: *starcat.FailedEnrichment("", starcat.SchemaVersion, err),
			})
			continue
		}
		if !found || strings.TrimSpace(content) == "" {
			records = append(records, &starcat.Record{
				Entry:      *entry,
				Enrichment: *starcat.DegradedEnrichment(entry, starcat.SchemaVersion),
			})
			continue
		}

		fp := deps.Fingerprinter.Fingerprint([]byte(content))
		cached, ok := deps.Cache.Lookup(entry.ID, fp, starcat.SchemaVersion)
		if !ok {
			if _, stale := deps.Cache.Get(entry.ID); stale {
				pending.stale++
			} else {
				pending.unenriched++
			}
			continue
		}
		records = append(records, &starcat.Record{Entry: *entry, Enrichment: *cached})
	}
	return records, pending, nil
}

// writeCatalog aggregates records into the catalog document and stores it.
func writeCatalog(deps *Dependencies, records []*starcat.Record) error {
	catalog := starcat.NewCatalog(records, starcat.CatalogOptions{
		GeneratedAt:   deps.Now().UTC(),
		RunID:         deps.NewRunID(),
		SchemaVersion: starcat.SchemaVersion,
		Model:         deps.Model,
	})

	if err := deps.Catalogs.WriteCatalog(deps.Ctx, catalog); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return err
	}

	m := catalog.Metadata
	fmt.Fprintf(deps.Stdout, "Wrote catalog: %d repositories, %d with README, %d failed, %d categories\n",
		catalog.Total, m.WithContent, m.Failed, len(m.Taxonomy.AtDepth(1)))
	return nil
}
