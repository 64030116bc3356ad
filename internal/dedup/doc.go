// Package dedup merges near-duplicate requirements extracted from
// overlapping chunks. Texts are normalized, embedded, and clustered with
// union-find over pairs whose cosine similarity meets the configured
// threshold; the first requirement of each cluster in canonical order
// survives with the cluster's page references unioned.
package dedup
