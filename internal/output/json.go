package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSON writes v pretty-printed with two-space indent and a trailing newline.
func JSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Envelope is the top-level JSON shape shared by every command: a status
// plus command-specific fields. Optional fields are omitted, never null.
type Envelope map[string]any

// SuccessEnvelope builds the success envelope with extra fields merged in.
func SuccessEnvelope(fields Envelope) Envelope {
	env := Envelope{"status": "success"}
	for k, v := range fields {
		env[k] = v
	}
	return env
}

// ErrorEnvelope builds the uniform error envelope.
func ErrorEnvelope(msg string) Envelope {
	return Envelope{"status": "error", "error": msg}
}
