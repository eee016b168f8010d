// Package media defines the sample buffers that flow from a capture device
// through the camcorder to the movie writer, plus the helpers that sit next
// to that path: an RTP depacketizer for devices that deliver RTP, and the
// live preview handle with its Opus audio level meter.
//
// A SampleBuffer is handed off by value; whoever holds it last owns its Data.
// Components that need to keep bytes past the handoff (the preview) copy them.
package media
