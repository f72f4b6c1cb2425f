package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// printer writes a result as text or as a structured document.
type printer struct {
	w      io.Writer
	format format
}

// emit writes v. In text format text renders it instead.
func (p *printer) emit(v any, text func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(p.w)
		return nil
	}
}

// line writes v compactly on one line, for streams.
func (p *printer) line(v any, text string) error {
	switch p.format {
	case formatJSON:
		return json.NewEncoder(p.w).Encode(v)
	case formatYAML:
		// A document separator keeps a YAML stream parseable.
		if _, err := fmt.Fprintln(p.w, "---"); err != nil {
			return err
		}
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = p.w.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(p.w, text)
		return err
	}
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Truncate(time.Second).String()
}
