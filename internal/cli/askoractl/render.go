package askoractl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

type outcomePayload struct {
	State      string `json:"state"`
	SQL        string `json:"sql"`
	Validation string `json:"validation"`
	Result     struct {
		Kind         string   `json:"kind"`
		Columns      []string `json:"columns"`
		Rows         [][]any  `json:"rows"`
		Message      string   `json:"message"`
		RowsAffected *int64   `json:"rows_affected"`
		Truncated    bool     `json:"truncated"`
	} `json:"result"`
}

func printJSON(w io.Writer, raw []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(raw), "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}

func renderMessage(w io.Writer, raw []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		return printJSON(w, raw)
	}
	_, err := fmt.Fprint(w, pterm.Success.Sprintln(body.Message))
	return err
}

func renderSchemas(w io.Writer, raw []byte) error {
	var body struct {
		Schemas []string `json:"schemas"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return printJSON(w, raw)
	}
	if len(body.Schemas) == 0 {
		_, err := fmt.Fprint(w, pterm.Warning.Sprintln("No schemas found."))
		return err
	}
	for _, name := range body.Schemas {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

func renderTranslation(w io.Writer, raw []byte) error {
	var body struct {
		SQL        string `json:"sql"`
		Validation string `json:"validation"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return printJSON(w, raw)
	}
	_, err := fmt.Fprintf(w, "-- %s\n%s\n", body.Validation, body.SQL)
	return err
}

func renderOutcome(w io.Writer, raw []byte) error {
	var body outcomePayload
	if err := json.Unmarshal(raw, &body); err != nil {
		return printJSON(w, raw)
	}
	if body.SQL != "" {
		if _, err := fmt.Fprintf(w, "Translated SQL Query (%s): %s\n", body.Validation, body.SQL); err != nil {
			return err
		}
	}

	if body.Result.Kind != "tabular" {
		msg := body.Result.Message
		if body.Result.RowsAffected != nil {
			msg = fmt.Sprintf("%s (%d rows affected)", msg, *body.Result.RowsAffected)
		}
		_, err := fmt.Fprint(w, pterm.Success.Sprintln(msg))
		return err
	}

	data := pterm.TableData{body.Result.Columns}
	for _, row := range body.Result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			if value == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(value)
		}
		data = append(data, cells)
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	footer := fmt.Sprintf("%d rows", len(body.Result.Rows))
	if body.Result.Truncated {
		footer += " (truncated)"
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", table, footer)
	return err
}
