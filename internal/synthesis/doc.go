// Package synthesis turns deduplicated requirements into the final
// checklist: derived titles, ISO due dates via fixed date patterns with an
// optional LLM fallback for free-form phrases, and evidence flags from
// source quotes.
package synthesis
