package tender

import (
	"fmt"
	"sort"
)

// Requirement categories form a closed set; schema validation rejects
// anything outside it.
const (
	CategorySubmission  = "submission"
	CategoryEligibility = "eligibility"
	CategoryTechnical   = "technical"
	CategoryFinancial   = "financial"
	CategoryOther       = "other"
)

// Categories lists the allowed requirement categories in canonical order.
func Categories() []string {
	return []string{
		CategorySubmission,
		CategoryEligibility,
		CategoryTechnical,
		CategoryFinancial,
		CategoryOther,
	}
}

// ValidCategory reports whether value is one of the allowed categories.
func ValidCategory(value string) bool {
	switch value {
	case CategorySubmission, CategoryEligibility, CategoryTechnical, CategoryFinancial, CategoryOther:
		return true
	}
	return false
}

// Page is one page of extracted document text. Source records which
// extraction path produced the text.
type Page struct {
	PageNo int    `json:"page_no"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Page text sources.
const (
	PageSourceNative = "native"
	PageSourceOCR    = "ocr"
	PageSourceFailed = "failed"
)

// Chunk is an overlapping window of consecutive pages sent as one unit to
// the language model. Index is the zero-based position within the job.
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	Index     int    `json:"index"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Text      string `json:"text"`
}

// Requirement is one extracted procurement obligation with provenance.
// IDs are chunk-local until dedup, after which the survivor's ID is
// canonical for its merged group.
type Requirement struct {
	ID               string  `json:"id"`
	PageRefs         []int   `json:"page_refs"`
	Text             string  `json:"text"`
	Category         string  `json:"category"`
	IsMandatory      bool    `json:"is_mandatory"`
	Deadline         *string `json:"deadline"`
	SubmissionFormat *string `json:"submission_format"`
	SourceQuote      *string `json:"source_quote"`
}

// ChunkResult is the persisted per-chunk extraction outcome
// (llm_outputs/{chunk_id}.json).
type ChunkResult struct {
	ChunkID      string        `json:"chunk_id"`
	ChunkIndex   int           `json:"chunk_index"`
	State        string        `json:"state"`
	Model        string        `json:"model,omitempty"`
	Requirements []Requirement `json:"requirements"`
	Error        string        `json:"error,omitempty"`
}

// Per-chunk extraction terminal states.
const (
	ChunkStateValid  = "valid"
	ChunkStateFailed = "failed"
)

// ChecklistItem is a requirement transformed into a user-facing actionable
// entry.
type ChecklistItem struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	IsMandatory      bool    `json:"is_mandatory"`
	DueDate          *string `json:"due_date"`
	Status           string  `json:"status"`
	PageRefs         []int   `json:"page_refs"`
	EvidenceRequired *bool   `json:"evidence_required"`
}

// ChecklistItemStatusOpen is the initial status of every synthesized item.
const ChecklistItemStatusOpen = "open"

// Checklist is the final artifact (checklist.json). It carries no
// timestamps: re-running a job with unchanged inputs must produce a
// byte-identical file.
type Checklist struct {
	JobID string          `json:"job_id"`
	Items []ChecklistItem `json:"items"`
}

// JobStatus is the externally polled status document (status.json).
// Always written as a full overwrite by the orchestrator.
type JobStatus struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
	Error  string `json:"error,omitempty"`
}

// External job statuses.
const (
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Options carries per-job pipeline tuning, set at enqueue time.
// Zero values mean "use configured defaults".
type Options struct {
	ChunkWindowPages   int     `json:"chunk_window_pages,omitempty"`
	ChunkOverlapPages  int     `json:"chunk_overlap_pages,omitempty"`
	EmbeddingThreshold float64 `json:"embedding_threshold,omitempty"`
}

// PromptKind distinguishes free-form questions from yes/no conditions.
type PromptKind string

const (
	PromptQuestion  PromptKind = "QUESTION"
	PromptCondition PromptKind = "CONDITION"
)

// Prompt is one user-supplied question or condition evaluated against the
// extracted document text.
type Prompt struct {
	ID   string     `json:"id"`
	Kind PromptKind `json:"kind"`
	Text string     `json:"text"`
}

// PromptResult is the evaluation outcome for one prompt.
type PromptResult struct {
	PromptID      string   `json:"prompt_id"`
	AnswerText    string   `json:"answer_text,omitempty"`
	BooleanResult *bool    `json:"boolean_result"`
	Confidence    float64  `json:"confidence"`
	Evidence      []string `json:"evidence,omitempty"`
	PageRefs      []int    `json:"page_refs,omitempty"`
	Status        string   `json:"status"`
	Error         string   `json:"error,omitempty"`
}

// Prompt result statuses.
const (
	PromptStatusAnswered = "answered"
	PromptStatusFailed   = "failed"
)

// ChunkIDForIndex formats the canonical chunk identifier for a zero-based
// index. Fixed-width so lexical and numeric ordering agree.
func ChunkIDForIndex(index int) string {
	return fmt.Sprintf("chunk_%04d", index)
}

// NormalizePageRefs sorts page references ascending and removes duplicates.
// Returns an empty (non-nil) slice for empty input so JSON renders [].
func NormalizePageRefs(refs []int) []int {
	if len(refs) == 0 {
		return []int{}
	}
	seen := make(map[int]struct{}, len(refs))
	out := make([]int, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	sort.Ints(out)
	return out
}

// MinPageRef returns the smallest page reference, or 0 when refs is empty.
func MinPageRef(refs []int) int {
	if len(refs) == 0 {
		return 0
	}
	min := refs[0]
	for _, ref := range refs[1:] {
		if ref < min {
			min = ref
		}
	}
	return min
}
