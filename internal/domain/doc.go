// Package domain holds the core types of the engagement engine: user
// preferences, scheduled events, delivery logs, and content references.
// It has no dependencies on storage or transport packages.
package domain
