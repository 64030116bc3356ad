package stage

import (
	"encoding/json"
	"strings"

	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

// ParseOptions decodes a queue item's pipeline options. On failure it
// returns a services.ErrValidation suitable for stage Execute methods.
// Empty input yields zero options, meaning configured defaults apply.
func ParseOptions(raw string) (tender.Options, error) {
	if strings.TrimSpace(raw) == "" {
		return tender.Options{}, nil
	}
	var opts tender.Options
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return tender.Options{}, services.Wrap(
			services.ErrValidation, "stage", "parse options",
			"Job options missing or invalid; re-enqueue the job", err)
	}
	return opts, nil
}
