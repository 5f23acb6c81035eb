package entity

// Dataset is a rectangular result set pulled from the object store:
// named columns and string-typed rows, exactly as read from CSV.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
