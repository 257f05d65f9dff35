package domain

import "fmt"

type Table struct {
	ID       string
	Number   int
	Name     string
	Capacity int
	Active   bool
}

// DisplayName falls back to "Table N" when the table has no name.
func (t Table) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("Table %d", t.Number)
}

func (t Table) Ref() TableRef {
	return TableRef{ID: t.ID, Name: t.DisplayName()}
}

// TableRef is what an order keeps of its table; orders never own tables.
type TableRef struct {
	ID   string
	Name string
}
