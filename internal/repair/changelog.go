package repair

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stage names the pipeline step that produced a log entry.
type Stage string

const (
	StageDecode     Stage = "decode"
	StageLineEnding Stage = "line_endings"
	StageStitch     Stage = "stitch"
	StageDelimiter  Stage = "delimiter"
	StageHeader     Stage = "header"
	StageShape      Stage = "shape"
	StageColumns    Stage = "columns"
	StageCells      Stage = "cells"
	StageDedupe     Stage = "dedupe"
	StageNearDupes  Stage = "near_dupes"
	StageOutput     Stage = "output"
)

// Entry is one change log line. Detail entries are diagnostics that
// callers may hide from end users.
type Entry struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Detail  bool   `json:"detail,omitempty"`
}

// ChangeLog is an append-only, ordered record of what a run did.
// Numbers in messages are formatted with thousands separators.
type ChangeLog struct {
	entries []Entry
	p       *message.Printer
}

// NewChangeLog returns an empty log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{p: message.NewPrinter(language.English)}
}

// Addf appends a user-facing entry.
func (l *ChangeLog) Addf(stage Stage, format string, args ...any) {
	l.entries = append(l.entries, Entry{Stage: stage, Message: l.sprintf(format, args...)})
}

// Detailf appends a diagnostic entry.
func (l *ChangeLog) Detailf(stage Stage, format string, args ...any) {
	l.entries = append(l.entries, Entry{Stage: stage, Message: l.sprintf(format, args...), Detail: true})
}

func (l *ChangeLog) sprintf(format string, args ...any) string {
	if l.p == nil {
		l.p = message.NewPrinter(language.English)
	}
	return l.p.Sprintf(format, args...)
}

// Entries returns a copy of every entry in order.
func (l *ChangeLog) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Messages returns the user-facing entries in order.
func (l *ChangeLog) Messages() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.Detail {
			out = append(out, e.Message)
		}
	}
	return out
}

// Len returns the number of entries, diagnostics included.
func (l *ChangeLog) Len() int { return len(l.entries) }
