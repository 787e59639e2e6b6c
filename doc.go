// Package bucketdecomp is an exact inference engine for discrete graphical
// models built on tree decomposition (bucket elimination).
//
// What is bucketdecomp?
//
//	A small, dependency-light library that brings together:
//
//	  - A generic Table[Y] factor representation over finite-domain variables
//	  - A pluggable semiring algebra: Min-Sum (optimize), Log-Sum-Product
//	    (sample), Count-Min (count solutions within tolerance)
//	  - A greedy variable-ordering heuristic with four cost functions
//	  - A two-pass (upward/downward) message-passing engine over the
//	    resulting bucket tree
//
// Everything is organized under one module, split by concern:
//
//	value/       — Var/Dom/Scope: the variable and domain-index vocabulary
//	table/       — Table[Y]: the factor representation
//	graph/       — the immutable factor-graph adjacency
//	treedecomp/  — elimination-order to rooted bucket-forest construction
//	voorder/     — greedy variable-ordering heuristic
//	semiring/    — Min-Sum, Log-Sum-Product, Count-Min, Dummy
//	merger/      — the core combine-then-marginalize operation
//	task/        — binds tables + semiring + evidence into one engine input
//	buckettree/  — the upward/downward message-passing engine
//	internal/telemetry/ — nil-safe pipeline stage-event sink
//	cmd/bucketdecomp/    — a JSON-in/JSON-out command-line front end
//
// The four functions in api.go (GreedyVarOrder, Optimize, Sample, CountMin)
// are the supported entry points; everything else is assembled from the
// subpackages above, which remain independently usable.
package bucketdecomp
