// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. English text doubles as the key.
const (
	msgPlaceholder  = "Enable preview to render the diagram"
	msgRendering    = "Rendering diagram..."
	msgRenderFailed = "Failed to render diagram: %s"
)

func init() {
	german := map[string]string{
		msgPlaceholder:  "Vorschau aktivieren, um das Diagramm darzustellen",
		msgRendering:    "Diagramm wird gerendert...",
		msgRenderFailed: "Diagramm konnte nicht gerendert werden: %s",
	}
	for key, msg := range german {
		_ = message.SetString(language.German, key, msg)
	}
}

// Messages produces user-facing diagram texts in one language.
type Messages struct {
	printer *message.Printer
}

// NewMessages returns the catalog for lang ("en", "de", ...). Unknown or
// malformed tags fall back to English.
func NewMessages(lang string) *Messages {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return &Messages{printer: message.NewPrinter(tag)}
}

// Placeholder is shown while preview rendering is off.
func (m *Messages) Placeholder() string {
	return m.printer.Sprintf(msgPlaceholder)
}

// Rendering is shown while a render is in flight.
func (m *Messages) Rendering() string {
	return m.printer.Sprintf(msgRendering)
}

// RenderFailed is shown in place of a diagram that failed to render.
func (m *Messages) RenderFailed(err error) string {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return m.printer.Sprintf(msgRenderFailed, detail)
}
