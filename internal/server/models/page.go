package models

// Page is an offset/limit window over a list query.
type Page struct {
	Offset int
	Limit  int
}

// Normalize clamps p into [0, maxLimit] with def as the limit when unset.
func (p Page) Normalize(def, maxLimit int) Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
