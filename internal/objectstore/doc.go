// Package objectstore provides the artifact store used by the pipeline.
//
// Every stage persists its output as an object under the job's key prefix,
// which is what makes stages resumable: a restarted stage finds the previous
// run's artifacts in place and can skip completed work.
package objectstore
