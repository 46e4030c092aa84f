package domain

// Catalog is the full question set as delivered by a loader, in source order.
type Catalog []Question

// ByCategory returns the questions of one learning category.
func (c Catalog) ByCategory(categoryID int) []Question {
	return c.filter(func(q Question) bool { return q.CategoryID == categoryID })
}

// ScreeningPool returns questions eligible for a screening gate.
func (c Catalog) ScreeningPool() []Question {
	return c.filter(func(q Question) bool { return q.Screening })
}

// Educational returns the questions that make up the timed tests.
func (c Catalog) Educational() []Question {
	return c.filter(func(q Question) bool { return !q.Screening })
}

func (c Catalog) filter(keep func(Question) bool) []Question {
	out := make([]Question, 0, len(c))
	for _, q := range c {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}
