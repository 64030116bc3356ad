package stage

// Health is a pipeline stage's readiness report, surfaced through the
// workflow status snapshot and `tenderlist daemon status`. Detail carries
// the reason a stage is not ready, e.g. a missing extractor binary or an
// unconfigured embedding client.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy reports a stage as ready to process jobs.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage as unable to process jobs, with the reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
