package model

// Status reports corpus size and store reachability for the status endpoint.
type Status struct {
	DocumentCount  int64 `json:"document_count"`
	ChunkCount     int64 `json:"chunk_count"`
	StoreReachable bool  `json:"store_reachable"`
}

// EmbeddingCache is one cached embedding row, keyed by model, task type and
// content hash.
type EmbeddingCache struct {
	ModelName   string
	TaskType    string
	ContentHash string
	Embedding   []float32
	Ctime       int64
}
