package store

import (
	"fmt"
	"strings"
)

// conditions accumulates WHERE clauses with postgres placeholders
type conditions struct {
	clauses []string
	args    []interface{}
}

// add appends a clause; each "?" in it is replaced with the next placeholder
func (c *conditions) add(clause string, args ...interface{}) {
	for _, a := range args {
		c.args = append(c.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(c.args)), 1)
	}
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// paginate appends LIMIT/OFFSET placeholders and returns the full arg list
func (c *conditions) paginate(p Page) (string, []interface{}) {
	n := len(c.args)
	args := append(append([]interface{}{}, c.args...), p.Limit(), p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}
