// Package policy decides which tickets a caller may see, which of their
// fields are returned, and whether a ticket mutation is permitted.
//
// Every decision is a switch over domain.Role; an unrecognised role is
// denied rather than defaulted.
package policy
