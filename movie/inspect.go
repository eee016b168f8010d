package movie

import (
	"fmt"
	"os"
	"time"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
)

// TrackInfo summarises one track of a sealed file.
type TrackInfo struct {
	Number  uint64
	Type    uint64
	CodecID string
	Width   uint64
	Height  uint64
	Frames  int
	// First and Last are absolute block timestamps in milliseconds.
	First int64
	Last  int64
}

// Duration is the span between the first and last block of the track.
func (t TrackInfo) Duration() time.Duration {
	if t.Frames == 0 {
		return 0
	}
	return time.Duration(t.Last-t.First) * time.Millisecond
}

// Info is the parsed layout of a WebM file.
type Info struct {
	DocType string
	Tracks  []TrackInfo
}

// Track returns the track with the given number.
func (i Info) Track(number uint64) (TrackInfo, bool) {
	for _, t := range i.Tracks {
		if t.Number == number {
			return t, true
		}
	}
	return TrackInfo{}, false
}

// Video returns the video track, if any.
func (i Info) Video() (TrackInfo, bool) { return i.Track(videoTrackNumber) }

// Audio returns the audio track, if any.
func (i Info) Audio() (TrackInfo, bool) { return i.Track(audioTrackNumber) }

type webmFile struct {
	Header  webm.EBMLHeader `ebml:"EBML"`
	Segment webm.Segment    `ebml:"Segment"`
}

// Inspect parses a sealed file and counts the blocks of each track.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	var doc webmFile
	if err := ebml.Unmarshal(f, &doc); err != nil {
		return Info{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Header.DocType == "" {
		return Info{}, fmt.Errorf("parse %s: missing EBML header", path)
	}

	info := Info{DocType: doc.Header.DocType}
	index := make(map[uint64]int)
	for _, entry := range doc.Segment.Tracks.TrackEntry {
		t := TrackInfo{
			Number:  entry.TrackNumber,
			Type:    entry.TrackType,
			CodecID: entry.CodecID,
		}
		if entry.Video != nil {
			t.Width = entry.Video.PixelWidth
			t.Height = entry.Video.PixelHeight
		}
		index[t.Number] = len(info.Tracks)
		info.Tracks = append(info.Tracks, t)
	}

	for _, cluster := range doc.Segment.Cluster {
		for _, block := range cluster.SimpleBlock {
			i, ok := index[block.TrackNumber]
			if !ok {
				continue
			}
			ts := int64(cluster.Timecode) + int64(block.Timecode)
			t := &info.Tracks[i]
			if t.Frames == 0 || ts < t.First {
				t.First = ts
			}
			if t.Frames == 0 || ts > t.Last {
				t.Last = ts
			}
			t.Frames++
		}
	}

	return info, nil
}
