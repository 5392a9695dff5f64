package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	ideas := []string{
		"a habit tracker",
		"",
		"a recipe box with {curly} braces and ```fences```",
		"多言語 idea ✓",
	}

	for _, idea := range ideas {
		t.Run(idea, func(t *testing.T) {
			p := Build(idea)

			assert.NotContains(t, p, ideaMarker)
			if idea != "" {
				assert.Equal(t, 1, strings.Count(p, idea))
			}
			assert.Contains(t, p, "```html")
			assert.Contains(t, p, "```css")
			assert.Contains(t, p, "```javascript")
			assert.Contains(t, p, "4-5")
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	assert.Equal(t, Build("a timer"), Build("a timer"))
	assert.NotEqual(t, Build("a timer"), Build("a clock"))
}

func TestBuildDoesNotExpandMarkerInIdea(t *testing.T) {
	p := Build("build {APP_IDEA} twice")
	assert.Equal(t, 1, strings.Count(p, "build {APP_IDEA} twice"))
}
