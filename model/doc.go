// Package model defines the shared core types of wowgo: internal IDs,
// labels, the attribute constraint, and search results.
package model
