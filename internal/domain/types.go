package domain

// EntityType classifies the council entity a document belongs to.
type EntityType string

const (
	EntityPaper   EntityType = "paper"
	EntityMeeting EntityType = "meeting"
	EntityUnknown EntityType = "unknown"
)

// EntityMetadata carries the folder-level metadata attached to every chunk
// of a document. Optional fields stay empty for documents without a
// metadata.json.
type EntityMetadata struct {
	Source         string
	Type           EntityType
	ID             string
	Name           string
	Date           string
	FileType       string
	FileID         string
	AccessURL      string
	DownloadURL    string
	PaperReference string
	PaperType      string
}

// Document is a single PDF on disk, identified across runs by the MD5
// fingerprint of its raw bytes. RelPath is relative to the corpus root and
// is the key under which points live in the vector store.
type Document struct {
	Path        string
	RelPath     string
	Fingerprint string
	Entity      EntityMetadata
}

// PageText is one page of extracted text, 1-based.
type PageText struct {
	Page int
	Text string
}

// ChunkRecord is one embedded chunk of one page. The triple
// (fingerprint, page, chunk index) identifies a chunk across runs and is the
// basis for its deterministic point id.
type ChunkRecord struct {
	Page       int       `json:"page"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// Payload is the point payload persisted in the vector store.
type Payload struct {
	Filename       string `json:"filename"`
	FileHash       string `json:"file_hash"`
	Page           int    `json:"page"`
	ChunkIndex     int    `json:"chunk_index"`
	Text           string `json:"text"`
	Source         string `json:"source,omitempty"`
	EntityType     string `json:"entity_type,omitempty"`
	EntityID       string `json:"entity_id,omitempty"`
	EntityName     string `json:"entity_name,omitempty"`
	Date           string `json:"date,omitempty"`
	FileType       string `json:"file_type,omitempty"`
	FileID         string `json:"file_id,omitempty"`
	PDFAccessURL   string `json:"pdf_access_url,omitempty"`
	PDFDownloadURL string `json:"pdf_download_url,omitempty"`
	PaperReference string `json:"paper_reference,omitempty"`
	PaperType      string `json:"paper_type,omitempty"`
}

// Point is the unit stored remotely: deterministic id, vector, payload.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint unifies similarity-search hits and raw stored records behind
// one shape. Score is zero for records that were fetched rather than ranked.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload Payload
}
