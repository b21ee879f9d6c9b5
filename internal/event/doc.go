// Package event defines the canonical running-event record shared by every
// stage of the pipeline.
//
// Events are rebuilt from scratch on every aggregation cycle. Their IDs are
// namespaced by source ("ir-", "bi-", "ts-", "manual-") and cross-source
// duplicates are detected with DedupKey, derived from the title prefix and
// start date. ParseDate normalizes the many date spellings used by the
// upstream sites into YYYY-MM-DD.
package event
