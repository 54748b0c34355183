// Package planner reorders arbitrary work items into the physical layout
// order of the underlying containers, so that a fetch loop over the result
// becomes sequential I/O. This is the hot path for workloads that address
// thousands of reads across files out of order (shuffled training batches)
// and still need sequential-like access against the store.
package planner

import (
	"fmt"
	"sort"

	"github.com/basecall-labs/sigseek/api"
)

// Resolver is the batch offset-resolution capability the planner consumes.
// *registry.Registry satisfies it; the planner never holds index handles.
type Resolver interface {
	ResolveOffsets(file string, ids []string) ([]int64, error)
}

// Plan returns a permutation of items in which items sharing a container
// are contiguous — groups ordered by first appearance — and sorted by
// ascending physical offset within each group. key extracts the
// (file, read ID) pair from an item.
func Plan[T any](r Resolver, items []T, key func(T) (file, id string)) ([]T, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key function is required", api.ErrInvalidArguments)
	}
	files := make([]string, len(items))
	ids := make([]string, len(items))
	for i, it := range items {
		files[i], ids[i] = key(it)
	}
	return plan(r, items, files, ids)
}

// PlanPairs is Plan with the (file, read ID) pairs supplied as parallel
// slices instead of a key function. Both slices must match items in length.
func PlanPairs[T any](r Resolver, items []T, files, ids []string) ([]T, error) {
	if files == nil || ids == nil {
		return nil, fmt.Errorf("%w: files and ids are required", api.ErrInvalidArguments)
	}
	if len(files) != len(items) || len(ids) != len(items) {
		return nil, fmt.Errorf("%w: items/files/ids length mismatch (%d/%d/%d)",
			api.ErrInvalidArguments, len(items), len(files), len(ids))
	}
	return plan(r, items, files, ids)
}

func plan[T any](r Resolver, items []T, files, ids []string) ([]T, error) {
	if len(items) == 0 {
		return []T{}, nil
	}

	// Partition item indices by file, keeping first-seen group order and
	// original relative order within each group.
	groups := make(map[string][]int, 4)
	var groupOrder []string
	for i, f := range files {
		if _, ok := groups[f]; !ok {
			groupOrder = append(groupOrder, f)
		}
		groups[f] = append(groups[f], i)
	}

	perm := make([]int, 0, len(items))
	for _, f := range groupOrder {
		idxs := groups[f]
		// Singleton groups need no offset resolution.
		if len(idxs) == 1 {
			perm = append(perm, idxs[0])
			continue
		}
		groupIDs := make([]string, len(idxs))
		for j, i := range idxs {
			groupIDs[j] = ids[i]
		}
		offsets, err := r.ResolveOffsets(f, groupIDs)
		if err != nil {
			return nil, err
		}
		// Stable: equal offsets keep input order (duplicate-offset edge case).
		order := make([]int, len(idxs))
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool { return offsets[order[a]] < offsets[order[b]] })
		for _, j := range order {
			perm = append(perm, idxs[j])
		}
	}

	out := make([]T, len(items))
	for i, p := range perm {
		out[i] = items[p]
	}
	return out, nil
}
