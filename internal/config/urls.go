package config

import (
	"bytes"
	"fmt"
	"text/template"
)

// URLData holds the fields available to download URL templates.
type URLData struct {
	Version    string
	Channel    string
	OS         string
	Arch       string
	ArchSuffix string
	Ext        string
}

// RenderURL expands a download URL template. Unknown fields are an error.
func RenderURL(tmpl string, data URLData) (string, error) {
	t, err := template.New("url").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse url template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render url template: %w", err)
	}
	return buf.String(), nil
}
