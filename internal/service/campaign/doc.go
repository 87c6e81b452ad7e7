// Package campaign implements campaign lifecycle management.
//
// A campaign moves draft → scheduled → sent, or to cancelled from draft or
// scheduled. Every transition is a conditional update in the repository so
// a launch racing a cancel resolves in the store: whichever commits first
// wins and the other sees zero rows changed.
//
// Launch materializes the live audience into queue entries. The status
// change and the bulk insert share one transaction (Repository.Launch).
package campaign
