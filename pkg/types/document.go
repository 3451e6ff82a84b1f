// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the relevance engine:
// the document variants accepted from each source, scored search results,
// ranked items, correlations, insights, and configuration.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceType identifies where a document was fetched from.
type SourceType string

const (
	SourceConfluence SourceType = "confluence"
	SourceJira       SourceType = "jira"
	SourceCode       SourceType = "code"
)

// SourceTypes lists every supported source type in canonical order. Merged
// output and correlation pairs follow this order.
var SourceTypes = []SourceType{SourceConfluence, SourceJira, SourceCode}

// ErrUnknownSourceType is returned when a source type name is not recognized.
var ErrUnknownSourceType = errors.New("unknown source type")

// ParseSourceType converts a name such as "jira" into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch st := SourceType(strings.ToLower(strings.TrimSpace(s))); st {
	case SourceConfluence, SourceJira, SourceCode:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSourceType, s)
	}
}

// ParseSourceTypes parses a list of names, rejecting unknown ones.
// An empty list yields nil, which callers treat as "all sources".
func ParseSourceTypes(names []string) ([]SourceType, error) {
	var out []SourceType
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		st, err := ParseSourceType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Document is the extraction contract every source variant satisfies.
// Implementations are ConfluencePage, JiraIssue and CodeFile; callers that
// need source-specific fields switch on the concrete type.
type Document interface {
	// DocumentID returns a stable identifier prefixed with the source type,
	// e.g. "jira:PROJ-55".
	DocumentID() string
	Kind() SourceType
	DisplayTitle() string
	// SearchableText is the text indexed by the semantic searcher.
	SearchableText() string
	// RankingText is the text the ranker and correlator match against.
	RankingText() string
	// Timestamp returns the most recent known modification time, or the
	// zero time when the document carries none.
	Timestamp() time.Time
	Link() string
	Metadata() map[string]any
}

var (
	_ Document = (*ConfluencePage)(nil)
	_ Document = (*JiraIssue)(nil)
	_ Document = (*CodeFile)(nil)
)

// ConfluencePage is a documentation page.
type ConfluencePage struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Excerpt      string    `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Content      string    `json:"content,omitempty" yaml:"content,omitempty"`
	Space        string    `json:"space,omitempty" yaml:"space,omitempty"`
	Author       string    `json:"author,omitempty" yaml:"author,omitempty"`
	Labels       []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	URL          string    `json:"url,omitempty" yaml:"url,omitempty"`
	Version      int       `json:"version,omitempty" yaml:"version,omitempty"`
	Created      time.Time `json:"created,omitzero" yaml:"created,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero" yaml:"last_modified,omitempty"`
}

func (p *ConfluencePage) DocumentID() string {
	if p.ID != "" {
		return "confluence:" + p.ID
	}
	if p.Title != "" {
		return "confluence:" + p.Title
	}
	return "confluence:unknown"
}

func (p *ConfluencePage) Kind() SourceType { return SourceConfluence }

func (p *ConfluencePage) DisplayTitle() string {
	if p.Title == "" {
		return "Untitled"
	}
	return p.Title
}

func (p *ConfluencePage) SearchableText() string {
	return joinNonEmpty(p.Title, p.Excerpt, p.Content, p.Space)
}

func (p *ConfluencePage) RankingText() string {
	return p.Title + " " + p.Excerpt + " " + p.Content
}

func (p *ConfluencePage) Timestamp() time.Time {
	if !p.LastModified.IsZero() {
		return p.LastModified
	}
	return p.Created
}

func (p *ConfluencePage) Link() string { return p.URL }

func (p *ConfluencePage) Metadata() map[string]any {
	return map[string]any{
		"last_modified": formatTime(p.LastModified),
		"space":         p.Space,
		"version":       p.Version,
	}
}

// JiraIssue is an issue-tracker ticket.
type JiraIssue struct {
	Key         string    `json:"key" yaml:"key"`
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	Summary     string    `json:"summary" yaml:"summary"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string    `json:"status,omitempty" yaml:"status,omitempty"`
	Priority    string    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Assignee    string    `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Reporter    string    `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	Project     string    `json:"project,omitempty" yaml:"project,omitempty"`
	Components  []string  `json:"components,omitempty" yaml:"components,omitempty"`
	Labels      []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Comments    []string  `json:"comments,omitempty" yaml:"comments,omitempty"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
	Created     time.Time `json:"created,omitzero" yaml:"created,omitempty"`
	Updated     time.Time `json:"updated,omitzero" yaml:"updated,omitempty"`
}

func (i *JiraIssue) DocumentID() string {
	switch {
	case i.Key != "":
		return "jira:" + i.Key
	case i.ID != "":
		return "jira:" + i.ID
	default:
		return "jira:unknown"
	}
}

func (i *JiraIssue) Kind() SourceType { return SourceJira }

func (i *JiraIssue) DisplayTitle() string {
	summary := i.Summary
	if summary == "" {
		summary = "Untitled"
	}
	return i.Key + ": " + summary
}

func (i *JiraIssue) SearchableText() string {
	return joinNonEmpty(i.Key, i.Summary, i.Description, i.Status, i.Priority)
}

func (i *JiraIssue) RankingText() string {
	return i.Summary + " " + i.Description
}

func (i *JiraIssue) Timestamp() time.Time {
	if !i.Updated.IsZero() {
		return i.Updated
	}
	return i.Created
}

func (i *JiraIssue) Link() string { return i.URL }

func (i *JiraIssue) Metadata() map[string]any {
	return map[string]any{
		"created":  formatTime(i.Created),
		"updated":  formatTime(i.Updated),
		"status":   i.Status,
		"priority": i.Priority,
		"assignee": i.Assignee,
	}
}

// CodeFile is a source file hit from a code repository search.
type CodeFile struct {
	Path           string    `json:"file_path" yaml:"file_path"`
	ContentPreview string    `json:"content_preview,omitempty" yaml:"content_preview,omitempty"`
	FileType       string    `json:"file_type,omitempty" yaml:"file_type,omitempty"`
	Size           int64     `json:"size,omitempty" yaml:"size,omitempty"`
	Lines          int       `json:"lines,omitempty" yaml:"lines,omitempty"`
	Matches        []string  `json:"matches,omitempty" yaml:"matches,omitempty"`
	URL            string    `json:"url,omitempty" yaml:"url,omitempty"`
	Modified       time.Time `json:"modified,omitzero" yaml:"modified,omitempty"`
}

func (f *CodeFile) DocumentID() string {
	if f.Path == "" {
		return "code:unknown"
	}
	return "code:" + f.Path
}

func (f *CodeFile) Kind() SourceType { return SourceCode }

func (f *CodeFile) DisplayTitle() string {
	if f.Path == "" {
		return "Unknown file"
	}
	return f.Path
}

func (f *CodeFile) SearchableText() string {
	return joinNonEmpty(f.Path, f.ContentPreview)
}

func (f *CodeFile) RankingText() string {
	return f.Path + " " + f.ContentPreview
}

func (f *CodeFile) Timestamp() time.Time { return f.Modified }

func (f *CodeFile) Link() string { return f.URL }

func (f *CodeFile) Metadata() map[string]any {
	return map[string]any{
		"file_type": f.FileType,
		"size":      f.Size,
		"modified":  formatTime(f.Modified),
		"matches":   len(f.Matches),
	}
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
