package model

// Document is the metadata row kept for every uploaded document. The raw
// text lives in the file archive under the document ID; the chunk/vector
// records live in the vector store.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
	ChunkCount  int    `json:"chunk_count"`
	Size        int64  `json:"size"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}

// Chunk is one window of a document produced by the chunker. Start and End
// are byte offsets into the source text; concatenating chunks with the
// overlap stripped reproduces the source exactly.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}
