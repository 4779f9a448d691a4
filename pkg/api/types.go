package api

// Imoji is the wire form of a sticker.
type Imoji struct {
	ID   string            `json:"id"`
	Tags []string          `json:"tags"`
	URLs map[string]string `json:"urls"`
}

// Category is the wire form of a category with its preview sticker.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Imoji *Imoji `json:"imoji,omitempty"`
}

// SearchParams are the query parameters of a search. Nil pointers are
// omitted so the server applies its defaults.
type SearchParams struct {
	Query  string
	Offset *int
	Limit  *int
}

type resultsResponse struct {
	Results []Imoji `json:"results"`
}

type categoriesResponse struct {
	Categories []Category `json:"categories"`
}

type fetchMultipleRequest struct {
	IDs []string `json:"ids"`
}

type addToCollectionRequest struct {
	ImojiID string `json:"imojiId"`
}
