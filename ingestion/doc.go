// Package ingestion turns a raw document into ordered chunks paired with
// vector embeddings.
//
// The Pipeline type runs the whole workflow for one document:
//   - Splitting the text into sentence spans and assembling overlapping chunks
//   - Sending every chunk's embed view to the embedder in a single batch call
//   - Pairing the returned vectors with the chunks' stored text by position
//
// A call either returns one record per chunk or an error; partial results are
// never returned. Sub-batching, concurrency and retries belong to the
// ai.Embedder handed to the pipeline.
package ingestion
