package checkout

import (
	"sort"

	"github.com/angelmondragon/librarydesk-backend/internal/cart"
	"github.com/google/uuid"
)

type bookTally struct {
	BookID uuid.UUID
	Title  string
	Lines  int
}

// tallyByBook counts cart lines per book. The result is ordered by book id
// so concurrent checkouts take row locks in the same order.
func tallyByBook(items []cart.CartItem) []bookTally {
	index := make(map[uuid.UUID]int, len(items))
	tallies := make([]bookTally, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.BookID]; ok {
			tallies[i].Lines++
			continue
		}
		index[item.BookID] = len(tallies)
		tallies = append(tallies, bookTally{BookID: item.BookID, Title: item.Title, Lines: 1})
	}
	sort.Slice(tallies, func(i, j int) bool {
		return tallies[i].BookID.String() < tallies[j].BookID.String()
	})
	return tallies
}
