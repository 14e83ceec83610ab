package entity

// Page is the extracted text of one PDF page. PageNo is 1-based and, inside a job,
// offset across documents.
type Page struct {
	PageNo int    `json:"page_no"`
	Text   string `json:"text"`
}

// Chunk is a window of consecutive pages submitted to the LLM as one unit.
type Chunk struct {
	ChunkID   int    `json:"chunk_id"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Text      string `json:"text"`
}
