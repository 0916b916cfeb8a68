package models

// PositionedFragment is one run of text placed on a page. Origin is bottom-left, Y grows upward.
type PositionedFragment struct {
	Text   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PageText is the reconstructed, cleaned text of one page.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Chunk is the unit that gets embedded and stored. PageNumber is the citation number
// and is only a real page number under the page-aligned policy.
type Chunk struct {
	PageNumber int    `json:"page_number"`
	ChunkID    int    `json:"chunk_id"`
	Content    string `json:"content"`
}

// SearchHit is a stored row returned by a nearest-neighbour query, closest first.
type SearchHit struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	PageNumber int     `json:"page_number"`
	Distance   float64 `json:"distance"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type PromptResponse struct {
	Query   string
	Source  string
	Content string
}
