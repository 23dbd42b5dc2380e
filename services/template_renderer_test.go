package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplateSubstitutesParams(t *testing.T) {
	out := RenderTemplate("Your order #{OrderNumber} total {OrderTotal}", map[string]interface{}{
		"OrderNumber": "1001",
		"OrderTotal":  "$25.00",
	})
	assert.Equal(t, "Your order #1001 total $25.00", out)
}

func TestRenderTemplateLeavesUnresolvedPlaceholders(t *testing.T) {
	out := RenderTemplate("Your order #{OrderNumber} total {OrderTotal}", map[string]interface{}{
		"OrderNumber": "1001",
	})
	assert.Equal(t, "Your order #1001 total {OrderTotal}", out)
}

func TestRenderTemplateCaseInsensitiveMatch(t *testing.T) {
	out := RenderTemplate("Hello {NAME}, hello {name}", map[string]interface{}{
		"Name": "Ada",
	})
	assert.Equal(t, "Hello Ada, hello Ada", out)
}

func TestRenderTemplateStringifiesValues(t *testing.T) {
	out := RenderTemplate("Qty {count}, paid {paid}", map[string]interface{}{
		"count": 3,
		"paid":  true,
	})
	assert.Equal(t, "Qty 3, paid true", out)
}

func TestRenderTemplateNoParams(t *testing.T) {
	out := RenderTemplate("Static message with {token}", nil)
	assert.Equal(t, "Static message with {token}", out)
}

func TestRenderTemplateRepeatedPlaceholder(t *testing.T) {
	out := RenderTemplate("{who} and {who} again", map[string]interface{}{
		"who": "you",
	})
	assert.Equal(t, "you and you again", out)
}
