package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// readMessage decodes a job message from path, or stdin when path is "-".
func readMessage(path string, stdin io.Reader) (entity.JobMessage, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return entity.JobMessage{}, err
		}
		defer f.Close()
		r = f
	}
	var msg entity.JobMessage
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		return entity.JobMessage{}, fmt.Errorf("decode job message %s: %w", path, err)
	}
	return msg.Normalized(), nil
}
