// Package suppression maintains the list of addresses that must not receive
// marketing mail.
//
// Entries come from two places: hard bounces and spam complaints reported
// by the provider webhook, and manual admin actions. Campaign launches
// filter their audience through FilterSuppressed before queueing.
package suppression
