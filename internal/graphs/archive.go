package graphs

import (
	"fmt"
	"io"
	"strings"

	"lectern/internal/normalize"
)

// WriteRecord appends one keyed grammar to a text archive stream: the
// utterance ID on its own line, the FST text, then a blank separator line.
func WriteRecord(w io.Writer, rec normalize.Record) error {
	text := rec.Text
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n", rec.ID, text); err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	return nil
}

// StreamRecords writes every record to w in slice order.
func StreamRecords(w io.Writer, records []normalize.Record) error {
	for _, rec := range records {
		if err := WriteRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}
