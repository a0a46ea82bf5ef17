// Package audio wraps the ffmpeg operations used by the transcription
// pipeline.
//
// Key type:
//   - Processor: executes ffmpeg with a swappable subprocess hook
//
// Primary entry points:
//   - Processor.Extract: pull the audio track out of a downloaded video
//   - Processor.EncodeForUpload: shrink audio to fit the remote upload ceiling
//   - Processor.ExtractChunk: slice long audio into fixed-length chunks
package audio
