// Package record maps typed application records to generic documents and back.
//
// Every record type is described once by a Descriptor: its name (which is
// also its storage partition), an ordered list of fields, and a canonical
// constructor. Encode walks the fields reading values through their
// accessors; Decode walks the same list to assemble constructor arguments.
// Because both directions are driven by one descriptor they are inverses.
//
// The field kinds are a closed set. Text is stored verbatim, timestamps as
// integer epoch milliseconds. Descriptors may declare other kinds, but the
// codec rejects them at first use with an UNSUPPORTED_FIELD_KIND error.
//
// Descriptors are registered in a process-wide registry, written once per
// name and safe for concurrent lookup afterwards.
package record
