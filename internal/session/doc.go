// Package session models discovery sessions and their stage progression.
//
// A session advances through seven stages (S0 start, S1 inputs, S2
// clarifiers, S3 hypotheses, S4 research, S5 persona, S6 report) along a
// fixed directed graph. The graph is encoded as an adjacency table so
// illegal regressions and stage skipping are structurally
// unrepresentable; the single sanctioned skip is S1 → S3, taken when no
// blocking clarifiers are needed.
//
// Service wraps the graph with persistence: Apply is the only code path
// that mutates a session's current stage. Treat this package as the
// single source of truth for progression semantics.
package session
