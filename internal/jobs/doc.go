// Package jobs defines the job and reel records persisted in the document
// store, the closed job status set, and segment types shared by the
// transcription pipeline.
package jobs
