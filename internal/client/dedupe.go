// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

// DeduplicateSources keeps the first occurrence of each source, preserving order.
// Servers cite the same document once per retrieved chunk, so repeats are common.
func DeduplicateSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	unique := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}
