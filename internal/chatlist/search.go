package chatlist

import (
	"fmt"
	"sort"

	"github.com/voxchat/voxchat-client/internal/types"
)

// SearchHit is one conversation's representative in search results: the
// most recent matching message plus the number of older matches collapsed
// into it.
type SearchHit struct {
	Message    types.SearchResult
	Suppressed int
}

// GroupSearchHits collapses duplicate hits for the same conversation to the
// single most recent message. Hits are returned most recent first.
func GroupSearchHits(results []types.SearchResult) []SearchHit {
	grouped := make(map[string]*SearchHit)
	order := make([]string, 0, len(results))

	for _, r := range results {
		var key string
		if r.ChatType == "private" {
			key = fmt.Sprintf("private_%d", r.ChatInfo.PeerUserId)
		} else {
			key = fmt.Sprintf("group_%d", r.ChatInfo.GroupId)
		}

		hit, ok := grouped[key]
		if !ok {
			grouped[key] = &SearchHit{Message: r}
			order = append(order, key)
			continue
		}

		hit.Suppressed++
		if r.CreatedAt.After(hit.Message.CreatedAt) {
			hit.Message = r
		}
	}

	hits := make([]SearchHit, 0, len(grouped))
	for _, key := range order {
		hits = append(hits, *grouped[key])
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Message.CreatedAt.After(hits[j].Message.CreatedAt)
	})

	return hits
}
