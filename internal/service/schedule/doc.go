// Package schedule implements the event scheduler: it turns a
// (user, touchpoint type, payload) tuple into a durable pending event row
// the dispatcher will later claim. It deliberately does not check
// eligibility — producers pre-filter, and the dispatcher re-checks at fire
// time because preferences may change in between.
package schedule
