package model

// Page selects a window of a result set.
type Page struct {
	Limit  int
	Offset int64
}
