// Package domain contains the core domain entities and value objects for the
// sky condition server.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (sockets, pipes, file system,
// logging) and contains only pure business logic.
//
// # Entities
//
//   - [Condition]: The sky condition ordinal, valid in [MinCondition, MaxCondition]
//   - [Snapshot]: A point-in-time copy of the published state
//
// # Validation
//
// [ParseCondition] is the single validation entry point for the wire protocol.
// It never panics; every input either yields a valid Condition or an error
// wrapping [ErrParse] or [ErrRange].
package domain
