// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/cast"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// errMissingID marks a record without its identifying field.
var errMissingID = errors.New("missing identifying field")

// record wraps one raw source record and remembers the first decoding
// error, so a decoder can read every field and check once at the end.
type record struct {
	fields map[string]any
	err    error
}

func (r *record) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: %w", key, err)
	}
}

// lookup returns the first present key among names.
func (r *record) lookup(names ...string) (string, any, bool) {
	for _, n := range names {
		if v, ok := r.fields[n]; ok && v != nil {
			return n, v, true
		}
	}
	return "", nil, false
}

func (r *record) str(names ...string) string {
	key, v, ok := r.lookup(names...)
	if !ok {
		return ""
	}
	// Nested objects such as {"key": "ENG", "name": "Engineering"}
	// collapse to their key.
	if m, isMap := v.(map[string]any); isMap {
		if inner := firstOf(m, "key", "name", "displayName"); inner != nil {
			v = inner
		}
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.fail(key, err)
	}
	return s
}

func (r *record) integer(names ...string) int64 {
	key, v, ok := r.lookup(names...)
	if !ok {
		return 0
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		r.fail(key, err)
	}
	return n
}

func (r *record) list(names ...string) []string {
	key, v, ok := r.lookup(names...)
	if !ok {
		return nil
	}
	items, isList := v.([]any)
	if !isList {
		out, err := cast.ToStringSliceE(v)
		if err != nil {
			r.fail(key, err)
		}
		return out
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		// Comment and match objects carry their text under one of these keys.
		if m, isMap := item.(map[string]any); isMap {
			item = firstOf(m, "body", "content", "fragment", "text")
		}
		s, err := cast.ToStringE(item)
		if err != nil {
			r.fail(key, err)
			return nil
		}
		out = append(out, s)
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// slashDateLayouts are tried after cast's layouts, day first.
var slashDateLayouts = []string{"02/01/2006", "01/02/2006"}

// timestamp accepts RFC3339 and date strings, slash dates, time values, and
// unix seconds as integers or floats. Results are in UTC. An unreadable
// value yields the zero time and leaves the record valid.
func (r *record) timestamp(names ...string) time.Time {
	key, v, ok := r.lookup(names...)
	if !ok {
		return time.Time{}
	}
	if s, isStr := v.(string); isStr && s == "" {
		return time.Time{}
	}
	if f, isFloat := v.(float64); isFloat {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	t, err := cast.ToTimeE(v)
	if err == nil {
		return t.UTC()
	}
	if str, isStr := v.(string); isStr {
		for _, layout := range slashDateLayouts {
			if t, perr := time.Parse(layout, str); perr == nil {
				return t
			}
		}
	}
	slog.Debug("ignoring unreadable timestamp", "field", key, "value", v, "error", err)
	return time.Time{}
}

func decodeConfluence(fields map[string]any) (types.Document, error) {
	r := &record{fields: fields}
	p := &types.ConfluencePage{
		ID:           r.str("id"),
		Title:        r.str("title"),
		Excerpt:      r.str("excerpt"),
		Content:      r.str("content"),
		Space:        r.str("space"),
		Author:       r.str("author", "creator"),
		Labels:       r.list("labels"),
		URL:          r.str("url"),
		Version:      int(r.integer("version")),
		Created:      r.timestamp("created"),
		LastModified: r.timestamp("last_modified", "lastModified"),
	}
	if r.err != nil {
		return nil, r.err
	}
	if p.ID == "" && p.Title == "" {
		return nil, fmt.Errorf("%w: id or title", errMissingID)
	}
	return p, nil
}

func decodeJira(fields map[string]any) (types.Document, error) {
	r := &record{fields: fields}
	i := &types.JiraIssue{
		Key:         r.str("key"),
		ID:          r.str("id"),
		Summary:     r.str("summary"),
		Description: r.str("description"),
		Status:      r.str("status"),
		Priority:    r.str("priority"),
		Assignee:    r.str("assignee"),
		Reporter:    r.str("reporter"),
		Project:     r.str("project"),
		Components:  r.list("components"),
		Labels:      r.list("labels"),
		Comments:    r.list("comments"),
		URL:         r.str("url"),
		Created:     r.timestamp("created"),
		Updated:     r.timestamp("updated"),
	}
	if r.err != nil {
		return nil, r.err
	}
	if i.Key == "" && i.ID == "" {
		return nil, fmt.Errorf("%w: key or id", errMissingID)
	}
	return i, nil
}

func decodeCode(fields map[string]any) (types.Document, error) {
	r := &record{fields: fields}
	f := &types.CodeFile{
		Path:           r.str("file_path", "path"),
		ContentPreview: r.str("content_preview", "content"),
		FileType:       r.str("file_type"),
		Size:           r.integer("size"),
		Lines:          int(r.integer("lines")),
		Matches:        r.list("matches"),
		URL:            r.str("url", "html_url"),
		Modified:       r.timestamp("modified", "last_modified"),
	}
	if r.err != nil {
		return nil, r.err
	}
	if f.Path == "" {
		return nil, fmt.Errorf("%w: file_path", errMissingID)
	}
	return f, nil
}

// Decode converts one raw record of the given source into its document
// variant. A record that is not an object, lacks its identifying field, or
// holds a wrongly typed field is rejected. Unreadable timestamps are not
// errors; they decode as the zero time.
func Decode(source types.SourceType, raw any) (types.Document, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("record is %T, not an object", raw)
	}
	switch source {
	case types.SourceConfluence:
		return decodeConfluence(fields)
	case types.SourceJira:
		return decodeJira(fields)
	case types.SourceCode:
		return decodeCode(fields)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownSourceType, source)
	}
}
