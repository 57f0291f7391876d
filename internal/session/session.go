// Package session stores per-session chat transcripts in memory.
//
// Responsibilities: append question/answer pairs, read a session's
// transcript, and evict idle sessions so transcripts cannot grow without
// bound for the lifetime of the process.
package session

import "time"

// Entry is one question/answer pair in a transcript.
type Entry struct {
	Question string
	Answer   string
	AskedAt  time.Time
}
