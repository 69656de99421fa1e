package biji

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Record is the metadata kept for one tracked file. It is persisted twice:
// as a sidecar next to the file and as a row in the index.
//
// Fields are declared in alphabetical order of their JSON keys so that the
// encoded sidecar has sorted keys.
type Record struct {
	BackupAt  string   `json:"backupAt"`  // reserved, always empty
	BijiCTime string   `json:"bijiCTime"` // creation of the sidecar, immutable
	BijiMTime string   `json:"bijiMTime"` // logical version, bumped on tag change
	Filename  string   `json:"filename"`
	Filepath  string   `json:"filepath"` // relative to the tracked root, slash-separated
	Filesize  int64    `json:"filesize"`
	Mimetype  *string  `json:"mimetype"`
	Suffix    string   `json:"suffix"`
	Tags      []string `json:"tags"`
	UpdatedAt string   `json:"updatedAt"` // filesystem mtime at last sync
}

// sidecarFields holds the sidecar keys that are authoritative on load.
// Everything else is recomputed from the filesystem.
type sidecarFields struct {
	Filepath  *string  `json:"filepath"`
	BackupAt  *string  `json:"backupAt"`
	BijiCTime *string  `json:"bijiCTime"`
	BijiMTime *string  `json:"bijiMTime"`
	Tags      []string `json:"tags"`
}

// Encode serializes the record as a single JSON object with sorted keys.
// Non-ASCII and HTML characters are written as-is.
func (r *Record) Encode() ([]byte, error) {
	out := *r
	if out.Tags == nil {
		out.Tags = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encoding record %s: %w", r.Filepath, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeSidecar parses sidecar bytes and validates the authoritative fields.
func decodeSidecar(data []byte) (*sidecarFields, error) {
	var f sidecarFields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSidecar, err)
	}
	for name, ts := range map[string]*string{"bijiCTime": f.BijiCTime, "bijiMTime": f.BijiMTime} {
		if ts == nil || *ts == "" {
			continue
		}
		if _, err := ParseTimestamp(*ts); err != nil {
			return nil, fmt.Errorf("%w: %s %q is not a timestamp", ErrCorruptSidecar, name, *ts)
		}
	}
	return &f, nil
}

// overlay copies the authoritative sidecar fields onto r.
func (f *sidecarFields) overlay(r *Record) {
	if f.BackupAt != nil {
		r.BackupAt = *f.BackupAt
	}
	if f.BijiCTime != nil && *f.BijiCTime != "" {
		r.BijiCTime = *f.BijiCTime
	}
	if f.BijiMTime != nil && *f.BijiMTime != "" {
		r.BijiMTime = *f.BijiMTime
	}
	r.Tags = NormalizeTags(f.Tags)
}

// SetTags replaces the tag set and stamps the logical version.
func (r *Record) SetTags(tags []string, now string) {
	r.Tags = NormalizeTags(tags)
	r.BijiMTime = now
}

// TagsEqual reports whether tags is set-equal to the record's tags.
func (r *Record) TagsEqual(tags []string) bool {
	a := NormalizeTags(r.Tags)
	b := NormalizeTags(tags)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasTag reports whether the record carries tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags collapses duplicates and sorts the result. Order carries no
// meaning for tags; sorting only keeps sidecars stable.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ApplyDelta computes (old - deleted) | added.
func ApplyDelta(old, deleted, added []string) []string {
	drop := make(map[string]struct{}, len(deleted))
	for _, t := range deleted {
		drop[t] = struct{}{}
	}
	result := make([]string, 0, len(old)+len(added))
	for _, t := range old {
		if _, ok := drop[t]; !ok {
			result = append(result, t)
		}
	}
	result = append(result, added...)
	return NormalizeTags(result)
}

// splitName derives the display name and lower-cased suffix from a path.
// Dot files such as ".bashrc" have no suffix.
func splitName(p string) (name, suffix string) {
	name = path.Base(p)
	ext := path.Ext(name)
	if ext == name || ext == "." {
		return name, ""
	}
	return name, strings.ToLower(ext)
}
