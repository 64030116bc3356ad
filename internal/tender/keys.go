package tender

import (
	"encoding/json"
	"fmt"
)

// Object-store key builders. All job artifacts live under jobs/{job_id}/.

func KeyRawPDF(jobID string) string { return fmt.Sprintf("jobs/%s/raw.pdf", jobID) }

func KeyPages(jobID string) string { return fmt.Sprintf("jobs/%s/pages.json", jobID) }

func KeyChunk(jobID, chunkID string) string {
	return fmt.Sprintf("jobs/%s/chunks/%s.json", jobID, chunkID)
}

func KeyChunkPrefix(jobID string) string { return fmt.Sprintf("jobs/%s/chunks", jobID) }

// KeyRawLLMOutput retains the unparsed model response for diagnosis.
func KeyRawLLMOutput(jobID, chunkID string) string {
	return fmt.Sprintf("jobs/%s/raw_llm_outputs/%s.txt", jobID, chunkID)
}

// KeyRepairedLLMOutput retains the repair call's response when one was made.
func KeyRepairedLLMOutput(jobID, chunkID string) string {
	return fmt.Sprintf("jobs/%s/raw_llm_outputs/%s_repaired.txt", jobID, chunkID)
}

func KeyLLMOutput(jobID, chunkID string) string {
	return fmt.Sprintf("jobs/%s/llm_outputs/%s.json", jobID, chunkID)
}

func KeyLLMOutputPrefix(jobID string) string { return fmt.Sprintf("jobs/%s/llm_outputs", jobID) }

func KeyMergedRequirements(jobID string) string {
	return fmt.Sprintf("jobs/%s/merged_requirements.json", jobID)
}

func KeyChecklist(jobID string) string { return fmt.Sprintf("jobs/%s/checklist.json", jobID) }

func KeyStatus(jobID string) string { return fmt.Sprintf("jobs/%s/status.json", jobID) }

func KeyPromptResults(jobID string) string { return fmt.Sprintf("jobs/%s/prompt_results.json", jobID) }

func KeyJobPrefix(jobID string) string { return fmt.Sprintf("jobs/%s", jobID) }

// MarshalArtifact encodes an artifact with stable two-space indentation.
// Field order follows struct declaration order, so encoding the same value
// always yields identical bytes.
func MarshalArtifact(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return append(data, '\n'), nil
}
