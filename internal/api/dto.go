package api

import (
	"github.com/starford/myfview/internal/myfileservice"
	"github.com/starford/myfview/internal/negotiate"
)

// MyfileDetail is the full myfile response type (aliased from the domain layer).
type MyfileDetail = myfileservice.MyfileDetail

// MyfileListItem is a lightweight item in a list response (aliased from the domain layer).
type MyfileListItem = myfileservice.MyfileListItem

// MyfileListResponse wraps paginated myfile listings.
type MyfileListResponse struct {
	Myfiles []MyfileListItem `json:"myfiles" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Name        string `json:"name" example:"ada" validate:"required"`
	DisplayName string `json:"display_name" example:"Ada Lovelace"`
	Snippet     string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// FormatInfo describes one output format.
type FormatInfo struct {
	Format  string   `json:"format" example:"yaml" validate:"required"`
	Aliases []string `json:"aliases" example:"yaml,yml,y" validate:"required"`
}

// FormatsResponse lists every output format.
type FormatsResponse struct {
	Formats []FormatInfo `json:"formats" validate:"required"`
}

// FormatAliases returns the alias table in a stable order.
func FormatAliases() []FormatInfo {
	table := negotiate.Aliases()
	order := []negotiate.Format{negotiate.HTML, negotiate.CLI, negotiate.JSON, negotiate.YAML, negotiate.TOML}
	out := make([]FormatInfo, 0, len(order))
	for _, f := range order {
		out = append(out, FormatInfo{Format: f.String(), Aliases: table[f]})
	}
	return out
}
