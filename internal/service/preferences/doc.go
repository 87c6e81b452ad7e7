// Package preferences reads, merges and writes a user's per-category email
// opt-in flags. Preferences live embedded on the customer record; this
// package only sees them through the Repository interface.
package preferences
