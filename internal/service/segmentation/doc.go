// Package segmentation resolves a campaign's category criteria into the
// concrete list of recipients.
//
// Matching is an OR across the categories the criteria set to true. Empty
// criteria select everyone with a preferences record; criteria whose values
// are all false select nobody.
package segmentation
