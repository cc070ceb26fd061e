// Package storage provides the durable client-side key-value backends used
// for session persistence and in-progress test attempts.
//
// Three implementations exist: [File] (the default, one file per key under a
// config directory), [Redis] (shared state across hosts), and [Memory]
// (tests). All three satisfy [Backend] and treat values as opaque bytes.
package storage
