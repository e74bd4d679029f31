// Package activity implements the activity scanner: read-only queries that
// turn activity signals (session history, stated interests, call cadence
// opt-ins) into candidate user lists for campaign jobs.
package activity
