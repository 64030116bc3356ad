package dedup

import (
	"context"
	"math"
	"sort"

	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

// Embedder is the slice of the embedding client the deduplicator needs.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// Deduplicate merges near-duplicate requirements. Requirements are first
// placed in canonical order (minimum page reference, then original chunk
// order); requirements whose normalized texts match cluster immediately,
// each distinct text is embedded once, and the remainder cluster with
// union-find over every pair whose cosine similarity meets the threshold.
// The first
// requirement of each cluster in canonical order survives and keeps its
// scalar fields; page references are unioned across the cluster. Canonical
// ordering makes the result independent of input order.
func Deduplicate(ctx context.Context, embedder Embedder, requirements []tender.Requirement, threshold float64) ([]tender.Requirement, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, services.Wrap(services.ErrValidation, "dedup", "merge",
			"Similarity threshold must be in (0, 1]", nil)
	}
	if len(requirements) == 0 {
		return []tender.Requirement{}, nil
	}

	ordered := make([]tender.Requirement, len(requirements))
	copy(ordered, requirements)
	sort.SliceStable(ordered, func(a, b int) bool {
		pa, pb := tender.MinPageRef(ordered[a].PageRefs), tender.MinPageRef(ordered[b].PageRefs)
		if pa != pb {
			return pa < pb
		}
		return ordered[a].ID < ordered[b].ID
	})

	inputs := make([]string, len(ordered))
	for i, req := range ordered {
		inputs[i] = Normalize(req.Text)
	}

	clusters := newUnionFind(len(ordered))

	// Identical normalized texts are duplicates by definition, so they
	// cluster without an embedding call and each distinct text embeds once.
	repByText := make(map[string]int, len(ordered))
	reps := make([]int, 0, len(ordered))
	for i, text := range inputs {
		if first, ok := repByText[text]; ok {
			clusters.union(first, i)
			continue
		}
		repByText[text] = i
		reps = append(reps, i)
	}

	unique := make([]string, len(reps))
	for i, idx := range reps {
		unique[i] = inputs[idx]
	}
	vectors, err := embedder.Embed(ctx, unique)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "dedup", "embed",
			"Embedding service call failed", err)
	}
	if len(vectors) != len(unique) {
		return nil, services.Wrap(services.ErrTransient, "dedup", "embed",
			"Embedding count does not match requirement count", nil)
	}

	for i := 0; i < len(reps); i++ {
		for j := i + 1; j < len(reps); j++ {
			if cosineSimilarity(vectors[i], vectors[j]) >= threshold {
				clusters.union(reps[i], reps[j])
			}
		}
	}

	merged := make(map[int]*tender.Requirement)
	order := make([]int, 0, len(ordered))
	for i, req := range ordered {
		root := clusters.find(i)
		survivor, seen := merged[root]
		if !seen {
			kept := req
			order = append(order, root)
			merged[root] = &kept
			continue
		}
		survivor.PageRefs = append(survivor.PageRefs, req.PageRefs...)
	}

	result := make([]tender.Requirement, 0, len(order))
	for _, root := range order {
		survivor := *merged[root]
		survivor.PageRefs = tender.NormalizePageRefs(survivor.PageRefs)
		result = append(result, survivor)
	}
	return result, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
