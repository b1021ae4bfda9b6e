package nl2sql

import (
	"fmt"
	"strings"
)

const promptTemplate = "Translate the following natural language query to an SQL statement:\nUser Query: %s\n%sSQL Query:"

var dialectNames = map[string]string{
	"postgres": "PostgreSQL",
	"duckdb":   "DuckDB",
}

// BuildPrompt renders the single user message sent to the model. Oracle
// questions get no dialect line.
func BuildPrompt(req Request) string {
	hint := ""
	if name, ok := dialectNames[strings.ToLower(strings.TrimSpace(req.Dialect))]; ok {
		hint = "Target SQL dialect: " + name + "\n"
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(req.Question), hint)
}
