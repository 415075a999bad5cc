package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/domq/api/schemas"
)

func TestScript(t *testing.T) {
	script, err := Script(schemas.DefaultPersona)
	require.NoError(t, err)

	assert.Contains(t, script, `"platform":"Win32"`)
	assert.Contains(t, script, `"languages":["en-US","en"]`)
	assert.Contains(t, script, `"webdriver"`)
	assert.NotEmpty(t, evasionsScript, "evasions.js must be embedded")
}

func TestScript_NoPageScopeBindings(t *testing.T) {
	script, err := Script(schemas.DefaultPersona)
	require.NoError(t, err)
	data, err := json.Marshal(schemas.DefaultPersona)
	require.NoError(t, err)

	// The whole script must be one call: (<function>)(<persona>);
	end := closingParen(t, script)
	assert.Equal(t, "("+string(data)+");\n", script[end+1:])

	for _, decl := range []string{"const persona", "let persona", "var persona"} {
		assert.NotContains(t, script, decl)
	}
}

// closingParen returns the index of the parenthesis closing the one at
// script[0], skipping string literals and line comments.
func closingParen(t *testing.T, script string) int {
	t.Helper()
	require.True(t, strings.HasPrefix(script, "("))
	depth := 0
	for i := 0; i < len(script); i++ {
		switch c := script[i]; c {
		case '"', '\'', '`':
			for i++; i < len(script) && script[i] != c; i++ {
				if script[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 < len(script) && script[i+1] == '/' {
				for i < len(script) && script[i] != '\n' {
					i++
				}
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	t.Fatal("unbalanced parentheses in rendered script")
	return -1
}

func TestApply(t *testing.T) {
	t.Run("FullPersona", func(t *testing.T) {
		core, observedLogs := observer.New(zap.DebugLevel)

		tasks, err := Apply(schemas.DefaultPersona, zap.New(core))
		require.NoError(t, err)
		// network.Enable, user agent, evasions, timezone, locale, metrics, headers.
		assert.Len(t, tasks, 7)

		logs := observedLogs.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Applying browser stealth persona", logs[0].Message)
		assert.Equal(t, schemas.DefaultPersona.UserAgent, logs[0].ContextMap()["userAgent"])
	})

	t.Run("EmptyPersona", func(t *testing.T) {
		tasks, err := Apply(schemas.Persona{}, zap.NewNop())
		require.NoError(t, err)
		// Only network.Enable and the evasions script remain.
		assert.Len(t, tasks, 2)
	})

	t.Run("Nil Logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			_, err := Apply(schemas.DefaultPersona, nil)
			assert.NoError(t, err)
		})
	})
}
