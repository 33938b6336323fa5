// Package repository defines the persistence contract of the booking
// engine and its two implementations: a MySQL store for deployments and
// an in-memory store for tests and local runs. Both report failures with
// the sentinel values below so higher layers can map them without caring
// which backend produced them.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist, or when a foreign key
// points at a missing row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write, such
// as a second reservation for the same (user, space, date).
var ErrDuplicate = errors.New("duplicate")

// ErrOverlap is returned by stores that enforce the approved-window
// invariant themselves when an approved reservation would intersect
// another approved reservation of the same space and date.
var ErrOverlap = errors.New("overlapping approved reservation")

// ErrCheckViolation is returned when a CHECK constraint rejects a row,
// e.g. start_time >= end_time or a capacity outside its range.
var ErrCheckViolation = errors.New("check constraint violated")

// ErrConflict is returned when a delete cannot proceed because dependent
// rows still reference the target.
var ErrConflict = errors.New("conflict")
