package statement

import "github.com/ppiankov/coinsight/internal/model"

// Classified is a located statement with its category and resolved tables
type Classified struct {
	Entry    model.StatementEntry
	Category model.StatementCategory
	Tables   []int
}

// GroupByCategory unions the tables of statements sharing a category.
// Categories appear in first-seen order, tables deduplicated in
// first-seen order.
func GroupByCategory(items []Classified) []model.CategoryTables {
	var groups []model.CategoryTables
	pos := make(map[model.StatementCategory]int)
	seen := make(map[model.StatementCategory]map[int]bool)

	for _, it := range items {
		i, ok := pos[it.Category]
		if !ok {
			i = len(groups)
			pos[it.Category] = i
			seen[it.Category] = make(map[int]bool)
			groups = append(groups, model.CategoryTables{Category: it.Category, Tables: []int{}})
		}
		for _, t := range it.Tables {
			if seen[it.Category][t] {
				continue
			}
			seen[it.Category][t] = true
			groups[i].Tables = append(groups[i].Tables, t)
		}
	}
	return groups
}
