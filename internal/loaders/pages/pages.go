// Package pages expands include/exclude page specs such as "1-5,10,20-25".
package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Parse expands a spec into sorted, unique, 1-based page numbers.
// An empty spec yields nil. Zero, negative and reversed ranges are errors.
func Parse(spec string) ([]int, error) {
	set := make(map[int]struct{})
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if a, b, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(a))
			end, err2 := strconv.Atoi(strings.TrimSpace(b))
			if err1 != nil || err2 != nil || start <= 0 || end <= 0 || end < start {
				return nil, fmt.Errorf("%w: invalid range %q", domain.ErrInvalidInput, part)
			}
			for p := start; p <= end; p++ {
				set[p] = struct{}{}
			}
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid page %q", domain.ErrInvalidInput, part)
		}
		set[n] = struct{}{}
	}

	if len(set) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// Compute returns the pages to process. A non-empty include wins over the
// full 1..total range; exclude is then subtracted. Included pages beyond
// total are kept; readers drop them.
func Compute(include, exclude string, total int) ([]int, error) {
	inc, err := Parse(include)
	if err != nil {
		return nil, err
	}
	exc, err := Parse(exclude)
	if err != nil {
		return nil, err
	}

	base := inc
	if len(base) == 0 {
		base = make([]int, 0, max(total, 0))
		for p := 1; p <= total; p++ {
			base = append(base, p)
		}
	}

	skip := make(map[int]struct{}, len(exc))
	for _, p := range exc {
		skip[p] = struct{}{}
	}

	out := make([]int, 0, len(base))
	for _, p := range base {
		if _, ok := skip[p]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Within drops pages greater than total.
func Within(pages []int, total int) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p <= total {
			out = append(out, p)
		}
	}
	return out
}
