// Package bytecode is the compiled backend for the mini language: it
// encodes typed AIR functions into a compact binary instruction stream for
// a stack-based virtual machine, and executes that stream directly.
//
// The bytecode format is designed for:
//   - Compact representation (1 tag byte plus fixed-width operands)
//   - Fast decoding (no variable-length encodings, little-endian operands)
//   - Easy serialization (program images round-trip through CBOR files
//     and the SQLite image store)
//
// # Architecture Overview
//
// The backend consists of several components:
//
//   - Opcodes: the closed instruction set. Every opcode declares its
//     operand byte layout and stack effect in a metadata table used by the
//     encoder, the disassembler, and tests.
//
//   - Encoder: symmetric Encode/Decode primitives. Decode is the exact
//     left inverse of Encode and fails on unknown tags or truncated
//     operands rather than misinterpreting bytes.
//
//   - Generator: two-pass translation from AIR to a Program image. Pass
//     one assigns function-table indices in declaration order; pass two
//     emits bodies, so forward references and mutual recursion resolve
//     without fixups.
//
//   - Program: the immutable handoff artifact: function table, one
//     concatenated code region, and the entry index. Safe to share
//     read-only between VM instances.
//
//   - VM: a flat iterative interpreter with an explicit operand stack and
//     an explicit call-frame stack. Guest calls never recurse into the
//     host stack; a call's arguments become the callee's parameter slots
//     in place. Faults are fatal and categorized (structural vs
//     arithmetic) so callers can tell a malformed program apart from bad
//     runtime data.
//
// # Frame layout
//
// A function with P parameters and L locals owns a contiguous region of
// P+L operand-stack slots starting at its frame's base offset, fixed for
// the frame's entire lifetime. Working values live above that region and
// are collapsed together with it on return.
package bytecode
