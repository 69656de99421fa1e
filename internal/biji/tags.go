package biji

import (
	"fmt"
	"strings"
)

// TagManager edits tags across sidecars and the index together.
type TagManager struct {
	sidecars   *SidecarStore
	index      Index
	reconciler *Reconciler
	logger     Logger
}

// NewTagManager creates a TagManager. Index writes for retagged files go
// through the reconciler's insert-or-update decision.
func NewTagManager(sidecars *SidecarStore, index Index, reconciler *Reconciler, logger Logger) *TagManager {
	return &TagManager{
		sidecars:   sidecars,
		index:      index,
		reconciler: reconciler,
		logger:     logger,
	}
}

// DeltaResult reports what ApplyTagDelta did.
type DeltaResult struct {
	Changed  []string // sidecars rewritten
	Inserted []string // rows inserted
	Updated  []string // rows updated
}

// ApplyTagDelta computes (old - deleted) | added for every file. Sidecars
// are rewritten only when the set actually changes, then the index row is
// inserted or updated as needed. Files without a sidecar whose tag set stays
// empty are left untracked.
func (m *TagManager) ApplyTagDelta(files, deleted, added []string) (*DeltaResult, error) {
	deleted, err := cleanTagNames(deleted)
	if err != nil {
		return nil, err
	}
	added, err = cleanTagNames(added)
	if err != nil {
		return nil, err
	}

	result := &DeltaResult{}
	for _, file := range files {
		rec, existed, err := m.sidecars.LoadOrNew(file)
		if err != nil {
			return result, err
		}

		newTags := ApplyDelta(rec.Tags, deleted, added)
		changed := !rec.TagsEqual(newTags)
		if changed {
			rec.SetTags(newTags, m.sidecars.Now())
			if err := m.sidecars.Persist(rec); err != nil {
				return result, err
			}
			result.Changed = append(result.Changed, file)
		}

		if !existed && !changed {
			continue
		}

		action, err := m.reconciler.SyncRecord(rec)
		if err != nil {
			return result, err
		}
		switch action {
		case SyncInserted:
			result.Inserted = append(result.Inserted, file)
		case SyncUpdated:
			result.Updated = append(result.Updated, file)
		}
	}

	m.logger.Info("tags applied",
		"files", len(files),
		"changed", len(result.Changed),
		"deleted", strings.Join(deleted, ","),
		"added", strings.Join(added, ","))
	return result, nil
}

// RenameTag renames a tag in every sidecar that carries it and in the index.
// Renaming onto an existing tag is refused.
func (m *TagManager) RenameTag(oldTag, newTag string) error {
	oldTag = strings.TrimSpace(oldTag)
	newTag = strings.TrimSpace(newTag)
	if oldTag == "" || newTag == "" {
		return fmt.Errorf("tag names must not be empty: %w", ErrInvalidArgument)
	}
	if oldTag == newTag {
		return nil
	}

	if _, found, err := m.index.TagUsedAt(oldTag); err != nil {
		return fmt.Errorf("looking up tag %q: %w", oldTag, err)
	} else if !found {
		return fmt.Errorf("tag %q: %w", oldTag, ErrNotFound)
	}
	if _, found, err := m.index.TagUsedAt(newTag); err != nil {
		return fmt.Errorf("looking up tag %q: %w", newTag, err)
	} else if found {
		return fmt.Errorf("tag %q: %w", newTag, ErrAlreadyExists)
	}

	n, err := m.propagate(oldTag, []string{newTag})
	if err != nil {
		return err
	}
	if err := m.index.RenameTag(oldTag, newTag); err != nil {
		return fmt.Errorf("renaming tag %q: %w", oldTag, err)
	}

	m.logger.Info("tag renamed", "from", oldTag, "to", newTag, "files", n)
	return nil
}

// DeleteTag removes a tag from every sidecar that carries it and from the index.
func (m *TagManager) DeleteTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("tag name must not be empty: %w", ErrInvalidArgument)
	}

	n, err := m.propagate(tag, nil)
	if err != nil {
		return err
	}
	if err := m.index.DeleteTag(tag); err != nil {
		return fmt.Errorf("deleting tag %q: %w", tag, err)
	}

	m.logger.Info("tag deleted", "tag", tag, "files", n)
	return nil
}

// propagate rewrites the sidecar of every file linked to tag, replacing tag
// with added, and pushes only the new version to the index. The caller's
// final index operation commits the batch. A sidecar that no longer carries
// tag is newer than its row; it is left alone for the next scan to update.
func (m *TagManager) propagate(tag string, added []string) (int, error) {
	files, err := m.index.FilesForTag(tag)
	if err != nil {
		return 0, fmt.Errorf("finding files for tag %q: %w", tag, err)
	}

	for i, file := range files {
		rec, err := m.sidecars.Load(file)
		if err != nil {
			m.rollback()
			return i, err
		}
		if !rec.HasTag(tag) {
			m.logger.Warn("index link without sidecar tag", "path", file, "tag", tag)
			continue
		}
		rec.SetTags(ApplyDelta(rec.Tags, []string{tag}, added), m.sidecars.Now())
		if err := m.sidecars.Persist(rec); err != nil {
			m.rollback()
			return i, err
		}
		if err := m.index.UpdateFileMTime(file, rec.BijiMTime); err != nil {
			m.rollback()
			return i, fmt.Errorf("updating version of %s: %w", file, err)
		}
	}
	return len(files), nil
}

func (m *TagManager) rollback() {
	if err := m.index.Rollback(); err != nil {
		m.logger.Error("rollback failed", "error", err)
	}
}

// OrphanTags returns tags that no file links to.
func (m *TagManager) OrphanTags() ([]string, error) {
	tags, err := m.index.UnusedTags()
	if err != nil {
		return nil, fmt.Errorf("listing unused tags: %w", err)
	}
	return tags, nil
}

// PruneOrphanTags deletes every tag that no file links to.
func (m *TagManager) PruneOrphanTags() ([]string, error) {
	tags, err := m.OrphanTags()
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if err := m.index.DeleteTag(tag); err != nil {
			return nil, fmt.Errorf("deleting tag %q: %w", tag, err)
		}
	}
	if len(tags) > 0 {
		m.logger.Info("orphan tags pruned", "count", len(tags))
	}
	return tags, nil
}

// CommonTags returns the tags shared by all files and the tags carried by
// at least one of them. Files without a sidecar count as having no tags.
func (m *TagManager) CommonTags(files []string) (common, all []string, err error) {
	if len(files) == 0 {
		return []string{}, []string{}, nil
	}

	counts := make(map[string]int)
	for _, file := range files {
		ok, err := m.sidecars.Exists(file)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		rec, err := m.sidecars.Load(file)
		if err != nil {
			return nil, nil, err
		}
		for _, tag := range rec.Tags {
			counts[tag]++
		}
	}

	common = []string{}
	all = make([]string, 0, len(counts))
	for tag, n := range counts {
		all = append(all, tag)
		if n == len(files) {
			common = append(common, tag)
		}
	}
	return NormalizeTags(common), NormalizeTags(all), nil
}

// cleanTagNames trims tag names and rejects empty ones.
func cleanTagNames(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("empty tag name: %w", ErrInvalidArgument)
		}
		out = append(out, t)
	}
	return NormalizeTags(out), nil
}
