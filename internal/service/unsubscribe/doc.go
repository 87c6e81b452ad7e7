// Package unsubscribe issues, validates, consumes and garbage-collects
// single-use unsubscribe tokens, and applies the preference change a token
// authorizes.
//
// Single use is enforced by the store: Consume is a conditional update and
// a token that matched zero rows is treated as invalid. Missing, expired
// and already-used tokens are indistinguishable to callers.
package unsubscribe
