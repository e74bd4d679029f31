// Package prefs is the preference store accessor: a read-through service
// over per-user notification and call preferences, plus the combined
// eligibility check used by campaign jobs and the dispatcher.
//
// Repository implementations live in repository/postgres/.
package prefs
