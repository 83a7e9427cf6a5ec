// Package starcat curates a personal catalog of starred repositories.
// It ingests README text, enriches each entry into a structured record via
// an external inference service, and exposes the result through a
// searchable, facetable view.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, bleve/).
package starcat
