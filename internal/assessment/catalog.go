package assessment

import "fmt"

// CatalogSize is the number of questions in every version: 3 dimensions
// x 3 subscales x 4 items.
const CatalogSize = 36

const itemsPerCell = 4

// ValidateCatalog checks the structural invariant a question version
// must satisfy before it can be served or scored: exactly 36 questions,
// orders 1..36 each appearing once, and exactly 4 questions per
// (dimension, subscale) cell.
func ValidateCatalog(questions []Question) error {
	if len(questions) != CatalogSize {
		return fmt.Errorf("catalog must contain exactly %d questions, got %d", CatalogSize, len(questions))
	}

	seen := make(map[int]bool, len(questions))
	cells := map[Dimension]map[Subscale]int{}
	for _, d := range Dimensions() {
		cells[d] = map[Subscale]int{}
	}

	for _, q := range questions {
		if q.Order < 1 || q.Order > CatalogSize {
			return fmt.Errorf("question_order %d out of range 1..%d", q.Order, CatalogSize)
		}
		if seen[q.Order] {
			return fmt.Errorf("duplicate question_order %d", q.Order)
		}
		seen[q.Order] = true

		if _, err := ParseDimension(string(q.Dimension)); err != nil {
			return fmt.Errorf("question %d: %w", q.Order, err)
		}
		if _, err := ParseSubscale(string(q.Subscale)); err != nil {
			return fmt.Errorf("question %d: %w", q.Order, err)
		}
		cells[q.Dimension][q.Subscale]++
	}

	for _, d := range Dimensions() {
		for _, s := range Subscales() {
			if n := cells[d][s]; n != itemsPerCell {
				return fmt.Errorf("dimension %s subscale %s has %d questions, want %d", d, s, n, itemsPerCell)
			}
		}
	}
	return nil
}
