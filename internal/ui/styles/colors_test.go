// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRenderers(t *testing.T) {
	tests := []struct {
		name      string
		render    func(string) string
		indicator string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("saved")
			assert.Contains(t, out, tt.indicator)
			assert.Contains(t, out, "saved")
		})
	}
}

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, RenderStatus(true, "ok"), StatusIndicators.Success)
	assert.Contains(t, RenderStatus(false, "bad"), StatusIndicators.Error)
}

func TestAdaptiveColorsDistinct(t *testing.T) {
	for name, c := range map[string]struct{ Light, Dark string }{
		"Purple": {Purple.Light, Purple.Dark},
		"Cyan":   {Cyan.Light, Cyan.Dark},
		"Rose":   {Rose.Light, Rose.Dark},
		"Amber":  {Amber.Light, Amber.Dark},
	} {
		assert.NotEmpty(t, c.Light, name)
		assert.NotEmpty(t, c.Dark, name)
		assert.NotEqual(t, c.Light, c.Dark, name)
	}
}
