// Package chunker turns raw file bytes into content-addressed chunks.
//
// The pipeline is decode (multi-codec cascade) → classify (reject
// binary) → sanitize (drop C0 controls) → split (line-bounded, stable
// naming):
//
//	c := chunker.New(800)
//	chunks, err := c.ChunkFile("/path/to/file.go", "internal/file.go")
//	for _, ch := range chunks {
//	    name := ch.Name() // hex SHA-256 of logical path || content
//	}
package chunker
