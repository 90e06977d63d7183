package logrotate

import (
	"cmp"
	"slices"
)

// SelectForCompression applies the rotation policy to one classification
// pass and returns the active files that should be compressed.
//
// Every file whose pid is not in live is selected first. The remaining files
// are grouped by pid; a group larger than maxActive is ranked in descending
// order and everything past the first maxActive entries is selected.
//
// With SequenceOrderLexical the ranking key is RawPID+RawSequence compared
// as text, so within one pid "9" outranks "10". SequenceOrderNumeric ranks by
// Sequence instead.
func SelectForCompression(active []ActiveFileRecord, live LiveSet, maxActive int, order SequenceOrder) []ActiveFileRecord {
	var selected []ActiveFileRecord
	groups := make(map[int][]ActiveFileRecord)
	var pids []int

	for _, rec := range active {
		if !live.Alive(rec.PID) {
			selected = append(selected, rec)
			continue
		}
		if _, seen := groups[rec.PID]; !seen {
			pids = append(pids, rec.PID)
		}
		groups[rec.PID] = append(groups[rec.PID], rec)
	}

	for _, pid := range pids {
		group := groups[pid]
		if len(group) <= maxActive {
			continue
		}
		slices.SortStableFunc(group, rankFunc(order))
		selected = append(selected, group[maxActive:]...)
	}
	return selected
}

// rankFunc returns a comparison that sorts the newest file first.
func rankFunc(order SequenceOrder) func(a, b ActiveFileRecord) int {
	if order == SequenceOrderNumeric {
		return func(a, b ActiveFileRecord) int {
			return cmp.Compare(b.Sequence, a.Sequence)
		}
	}
	return func(a, b ActiveFileRecord) int {
		return cmp.Compare(b.RawPID+b.RawSequence, a.RawPID+a.RawSequence)
	}
}
