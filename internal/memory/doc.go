// Package memory implements the dual-tier memory engine: short-term
// conversational turns with TTL-based retention, long-term semantic
// memories with importance decay, a shared knowledge chunk store, and
// the context assembler that joins the tiers for prompt building.
package memory
