// Package opening identifies which known opening jingle a media file starts
// with.
//
// BuildEntries decodes labelled reference clips into database entries, and a
// Detector decodes the opening window of each episode and predicts its label,
// warning when the margin over the runner-up is too small to trust.
package opening
