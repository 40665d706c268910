// Package embed provides pluggable text embedding providers and the bulk
// embedding pipeline.
//
// # Providers
//
// [Provider] is the contract every embedding backend implements. Two
// network-backed providers are included, selected by configuration:
//
//   - [VoyageClient]: Voyage AI embeddings API, with separate models for
//     code and prose
//   - [OpenAIClient]: any OpenAI-compatible embeddings endpoint
//
// [Fake] is a deterministic provider for tests and offline development.
//
// # Purpose and mode
//
// Every embedding call carries a [Purpose] (code vs. prose, selects the
// model) and a [Mode] (document vs. query, passed through to providers
// that embed the two asymmetrically).
//
// # Pipeline
//
// [Pipeline] implements the bulk path used during ingestion: texts are
// split into fixed-size batches, a minimum delay is enforced between
// provider calls, each batch call is retried with exponential backoff,
// and progress is reported after every batch. Output vectors are always
// positionally aligned with the input texts. A batch that exhausts its
// retries fails the whole operation; no partial results are returned.
package embed
