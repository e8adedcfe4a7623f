// Package types provides shared type definitions for the ctxmcp server:
// the content-addressed Chunk, the per-file cache record and Index that
// track what has already been uploaded, and the result types returned by
// an indexing pass and a retrieval call.
//
//	chunk := types.Chunk{LogicalPath: "internal/foo.go", Content: body}
//	name := chunk.Name() // hex SHA-256 of logical path || content
//
//	idx := types.NewIndex(fingerprint)
//	idx.Entries["internal/foo.go"] = types.FileEntry{SizeBytes: 512, ChunkNames: []string{name}}
package types
