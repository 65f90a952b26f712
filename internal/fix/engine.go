// Package fix applies the edits that diagnostics suggest to source files.
package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"fabr/internal/diag"
	"fabr/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	// ApplyModeOnce applies the first fix in source order.
	ApplyModeOnce ApplyMode = iota
	// ApplyModeAll applies every fix that does not overlap an earlier one.
	ApplyModeAll
	// ApplyModeID applies the fix with ApplyOptions.TargetID.
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a fix that made it into a FileChange.
type AppliedFix struct {
	ID          string
	Title       string
	Code        diag.Code
	Message     string
	PrimaryPath string
	EditCount   int
}

// SkippedFix captures a skipped fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange is the new content of one file.
type FileChange struct {
	Path      string
	Content   []byte
	EditCount int
}

// Plan aggregates applied fixes, skipped ones, and file changes. Nothing
// touches the disk until Write.
type Plan struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	id    string
	order int
}

// ID returns the stable identifier of the idx-th fix of d, as accepted by
// ApplyModeID: "<CODE>-<file>-<offset>-<idx>".
func ID(d diag.Diagnostic, idx int) string {
	return fmt.Sprintf("%s-%d-%d-%d", d.Code.ID(), d.Primary.File, d.Primary.Start, idx)
}

// Build collects fixes from diagnostics, selects a subset according to opts
// and computes the edited contents.
func Build(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*Plan, error) {
	plan := &Plan{}
	if fs == nil {
		return plan, errors.New("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(diagnostics)
	plan.Skipped = append(plan.Skipped, skips...)
	if len(candidates) == 0 {
		return plan, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, skips := selectCandidates(candidates, opts)
	plan.Skipped = append(plan.Skipped, skips...)
	if len(selected) == 0 {
		return plan, ErrNoFixes
	}

	applied, skips, changes := applyCandidates(fs, selected)
	plan.Applied = applied
	plan.Skipped = append(plan.Skipped, skips...)
	plan.FileChanges = changes
	if len(plan.Applied) == 0 {
		return plan, ErrNoFixes
	}
	return plan, nil
}

// Write stores every changed file, keeping its permissions.
func (p *Plan) Write() error {
	for _, ch := range p.FileChanges {
		mode := os.FileMode(0o644)
		if info, err := os.Stat(ch.Path); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(ch.Path, ch.Content, mode); err != nil {
			return fmt.Errorf("write %s: %w", ch.Path, err)
		}
	}
	return nil
}

func gatherCandidates(diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	var (
		cands []candidate
		skips []SkippedFix
	)
	seen := make(map[string]struct{})
	for _, d := range diagnostics {
		for idx, f := range d.Fixes {
			id := ID(d, idx)
			switch {
			case len(f.Edits) == 0:
				skips = append(skips, SkippedFix{ID: id, Title: f.Title, Reason: "fix has no edits"})
				continue
			case hasDuplicate(seen, id):
				skips = append(skips, SkippedFix{ID: id, Title: f.Title, Reason: "duplicate fix id"})
				continue
			}
			cands = append(cands, candidate{diag: d, fix: f, id: id, order: len(cands)})
		}
	}
	return cands, skips
}

func hasDuplicate(seen map[string]struct{}, id string) bool {
	if _, ok := seen[id]; ok {
		return true
	}
	seen[id] = struct{}{}
	return false
}

// sortCandidates orders by file, span start, span end, then insertion order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i].diag.Primary, candidates[j].diag.Primary
		if di.File != dj.File {
			return di.File < dj.File
		}
		if di.Start != dj.Start {
			return di.Start < dj.Start
		}
		if di.End != dj.End {
			return di.End < dj.End
		}
		return candidates[i].order < candidates[j].order
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.id == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}
	case ApplyModeAll:
		return candidates, nil
	case ApplyModeOnce:
		return candidates[:1], nil
	default:
		return nil, nil
	}
}

// loadedAsIs reports whether f's content is byte-identical to the disk:
// offsets into normalized content would corrupt the file on write.
func loadedAsIs(f *source.File) (bool, string) {
	switch {
	case f.Flags&source.FileVirtual != 0:
		return false, "target file is virtual"
	case f.Flags.Rewritten():
		return false, "target file was normalized on load"
	}
	return true, ""
}

func applyCandidates(fs *source.FileSet, selected []candidate) ([]AppliedFix, []SkippedFix, []FileChange) {
	// все правки считаются в координатах исходного содержимого
	accepted := make(map[source.FileID][]diag.FixEdit)
	var (
		applied []AppliedFix
		skipped []SkippedFix
	)

	for _, cand := range selected {
		reason := ""
		for i, edit := range cand.fix.Edits {
			if int(edit.Span.File) >= fs.Len() {
				reason = "edit points outside the loaded files"
				break
			}
			f := fs.Get(edit.Span.File)
			if ok, why := loadedAsIs(f); !ok {
				reason = why
				break
			}
			if edit.Span.End < edit.Span.Start || int(edit.Span.End) > len(f.Content) {
				reason = "edit span out of range"
				break
			}
			if conflicts(accepted[edit.Span.File], edit) || conflicts(without(cand.fix.Edits, i), edit) {
				reason = fmt.Sprintf("conflicts with another edit in %s", f.FormatPath("auto", fs.BaseDir()))
				break
			}
		}
		if reason != "" {
			skipped = append(skipped, SkippedFix{ID: cand.id, Title: cand.fix.Title, Reason: reason})
			continue
		}
		for _, edit := range cand.fix.Edits {
			accepted[edit.Span.File] = append(accepted[edit.Span.File], edit)
		}
		applied = append(applied, AppliedFix{
			ID:          cand.id,
			Title:       cand.fix.Title,
			Code:        cand.diag.Code,
			Message:     cand.diag.Message,
			PrimaryPath: formatFilePath(fs, cand.diag.Primary),
			EditCount:   len(cand.fix.Edits),
		})
	}

	changes := make([]FileChange, 0, len(accepted))
	for id, edits := range accepted {
		f := fs.Get(id)
		changes = append(changes, FileChange{Path: f.Path, Content: rewrite(f.Content, edits), EditCount: len(edits)})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return applied, skipped, changes
}

// rewrite applies non-overlapping edits back to front so earlier offsets
// stay valid.
func rewrite(content []byte, edits []diag.FixEdit) []byte {
	sorted := append([]diag.FixEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End > sorted[j].Span.End
		}
		return sorted[i].Span.Start > sorted[j].Span.Start
	})
	out := append([]byte(nil), content...)
	for _, e := range sorted {
		tail := append([]byte(e.NewText), out[e.Span.End:]...)
		out = append(out[:e.Span.Start], tail...)
	}
	return out
}

// conflicts reports whether e overlaps an edit of existing in the same
// file. Spans are half-open; repeating an accepted edit is a conflict too.
func conflicts(existing []diag.FixEdit, e diag.FixEdit) bool {
	for _, prev := range existing {
		if prev.Span.File != e.Span.File {
			continue
		}
		if prev.Span == e.Span || spansConflict(prev.Span, e.Span) {
			return true
		}
	}
	return false
}

func without(edits []diag.FixEdit, i int) []diag.FixEdit {
	out := make([]diag.FixEdit, 0, len(edits)-1)
	out = append(out, edits[:i]...)
	return append(out, edits[i+1:]...)
}

// spansConflict reports whether two half-open spans overlap. A zero-length
// span conflicts with a non-empty one only when it lies strictly inside.
func spansConflict(a, b source.Span) bool {
	switch {
	case a.Empty() && b.Empty():
		return false
	case a.Empty():
		return b.Start < a.Start && a.Start < b.End
	case b.Empty():
		return a.Start < b.Start && b.Start < a.End
	}
	return a.Start < b.End && b.Start < a.End
}

func formatFilePath(fs *source.FileSet, span source.Span) string {
	if int(span.File) >= fs.Len() {
		return ""
	}
	return fs.Get(span.File).FormatPath("auto", fs.BaseDir())
}
