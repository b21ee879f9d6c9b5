// Package scraper fetches running-event listings from third-party sites and
// normalizes them into event.Event records.
//
// Every site gets its own Extractor: IndiaRunning embeds a Next.js JSON payload
// in server-rendered pages, BhaagoIndia exposes one JSON-LD block per event
// detail page, and Townscript returns JSON-LD listings to crawler user agents.
// A hand-curated Manual source is loaded from YAML. Field access during
// normalization always goes through ordered fallbacks so partial upstream
// data never aborts a batch.
package scraper
