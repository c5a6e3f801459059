// Package memory is the semantic health memory engine.
//
// Heterogeneous health artifacts (prescriptions, lab reports, numeric
// vitals, vaccination events) are normalized into uniform, append-only
// memory records, embedded, and indexed for top-k similarity search.
//
// Architecture:
//   - Store: vector storage backend (chromem-go embedded index for
//     in-process use, SQLite for durable deployments)
//   - Embedder: text-to-vector conversion (local ONNX model, Ollama,
//     OpenAI, or the deterministic mock for tests)
//   - Normalizer: artifact -> canonical text + structured fields
//   - Manager: orchestrates the write path (normalize, embed, insert
//     with bounded retry) and the read path (Ask, All)
//
// Records are never mutated or deleted after insert. The derived
// reasoners in the schedule and trend packages read the store through
// its metadata scan, bypassing embeddings entirely.
package memory
