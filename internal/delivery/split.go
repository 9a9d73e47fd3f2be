// Package delivery prepares response text for outbound transports.
package delivery

import "regexp"

var imageRe = regexp.MustCompile(`IMAGE\(([^)]+)\)`)

// Segment is one deliverable part of a response: either plain text or a
// named image reference.
type Segment struct {
	Text  string
	Image string // image name; empty for text segments
}

// IsImage reports whether the segment references an image.
func (s Segment) IsImage() bool { return s.Image != "" }

// Split cuts response text at each IMAGE(name) marker into alternating
// text and image segments, preserving marker order and trailing text.
// Empty text runs between adjacent markers are dropped. A response with
// no markers yields a single text segment.
func Split(text string) []Segment {
	var segs []Segment
	start := 0
	for _, m := range imageRe.FindAllStringSubmatchIndex(text, -1) {
		if chunk := text[start:m[0]]; chunk != "" {
			segs = append(segs, Segment{Text: chunk})
		}
		segs = append(segs, Segment{Image: text[m[2]:m[3]]})
		start = m[1]
	}
	if rest := text[start:]; rest != "" || len(segs) == 0 {
		segs = append(segs, Segment{Text: rest})
	}
	return segs
}
