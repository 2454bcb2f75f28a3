package codegen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/llm"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/standards"
)

// scriptedProvider returns the queued replies in order, repeating the last.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []reply
	calls    int
	requests []llm.Request
}

type reply struct {
	text string
	err  error
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	i := p.calls
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	p.calls++
	return p.replies[i].text, p.replies[i].err
}

func (p *scriptedProvider) Model() string { return "scripted" }

var noDelay = RetryPolicy{MaxAttempts: 3}

func testContext(t *testing.T) PromptContext {
	t.Helper()
	cfg := &project.Config{
		Name:     "demo-api",
		Type:     project.TypeAPI,
		Language: project.LanguageTypeScript,
	}
	cfg.ApplyDefaults()
	cache := standards.NewCache(map[string]string{"coding": strings.Repeat("x", 100)})
	pc, err := NewPromptContext("generate-core-code", "write the entry point", cfg, cache, []string{"coding"}, 10)
	require.NoError(t, err)
	return pc
}

func TestGenerate_TransientThenSuccess(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: llm.NewError(llm.ErrorTypeRateLimit, "slow down")},
		{text: "=== FILE: src/index.ts ===\nexport {}\n=== END FILE ==="},
	}}
	c := NewClient(p, WithRetryPolicy(noDelay))

	text, err := c.Generate(context.Background(), testContext(t))
	require.NoError(t, err)
	assert.Contains(t, text, "src/index.ts")
	assert.Equal(t, 2, p.calls)
}

func TestGenerate_TransientExhausted(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: llm.NewError(llm.ErrorTypeTransient, "503")},
	}}
	c := NewClient(p, WithRetryPolicy(noDelay))

	_, err := c.Generate(context.Background(), testContext(t))
	require.Error(t, err)
	assert.Equal(t, ReasonTransientExhausted, ReasonOf(err))
	assert.Equal(t, 3, p.calls)

	var cgErr *Error
	require.ErrorAs(t, err, &cgErr)
	assert.Equal(t, 3, cgErr.Attempts)
	assert.Equal(t, "generate-core-code", cgErr.Stage)
}

func TestGenerate_NonTransientFailsImmediately(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: llm.NewError(llm.ErrorTypeAuth, "bad key")},
	}}
	c := NewClient(p, WithRetryPolicy(noDelay))

	_, err := c.Generate(context.Background(), testContext(t))
	require.Error(t, err)
	assert.Equal(t, ReasonNonTransient, ReasonOf(err))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, llm.ErrorTypeAuth, llm.TypeOf(err))
}

func TestGenerate_InvalidShape(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"blank", "   \n\t"},
		{"mustache placeholder", "const key = '{{ API_KEY }}'"},
		{"angle placeholder", "host: <<HOSTNAME>>"},
		{"insert marker", "[INSERT business logic here]"},
		{"bare placeholder", "name: [PLACEHOLDER]"},
		{"todo placeholder", "return TODO_PLACEHOLDER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{replies: []reply{{text: tt.text}}}
			c := NewClient(p, WithRetryPolicy(noDelay))

			_, err := c.Generate(context.Background(), testContext(t))
			require.Error(t, err)
			assert.Equal(t, ReasonInvalidShape, ReasonOf(err))
			assert.ErrorIs(t, err, ErrInvalidShape)
			assert.Equal(t, 1, p.calls)
		})
	}
}

func TestValidateShape_AllowsTemplateSyntax(t *testing.T) {
	for _, text := range []string{
		"<p>{{ message }}</p>",
		"cat <<EOF\nhello\nEOF",
		"items[INDEX]",
		"const statements = [INSERT_SQL, UPDATE_SQL];",
		"ops[INSERTED]",
	} {
		assert.NoError(t, ValidateShape(text), text)
	}
}

func TestGenerate_CancelledDuringBackoff(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: llm.NewError(llm.ErrorTypeTransient, "503")},
	}}
	c := NewClient(p, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.Generate(ctx, testContext(t))
	require.Error(t, err)
	assert.Equal(t, ReasonCancelled, ReasonOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.calls)
}

func TestGenerate_PromptCarriesConfigAndExcerpt(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: "ok"}}}
	c := NewClient(p, WithRetryPolicy(noDelay), WithMaxTokens(1234))

	_, err := c.Generate(context.Background(), testContext(t))
	require.NoError(t, err)
	require.Len(t, p.requests, 1)

	req := p.requests[0]
	assert.Equal(t, 1234, req.MaxTokens)
	assert.Contains(t, req.Prompt, "name: demo-api")
	assert.Contains(t, req.Prompt, "## Standard: coding\n"+strings.Repeat("x", 10)+"\n")
	assert.NotContains(t, req.Prompt, strings.Repeat("x", 11))
	assert.Contains(t, req.Prompt, "=== FILE: ")
	assert.Contains(t, req.System, "COMPLIANCE:")
}

func TestGenerate_ObserverSeesEveryAttempt(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: llm.NewError(llm.ErrorTypeEmptyResponse, "empty")},
		{text: "ok"},
	}}
	var attempts []int
	c := NewClient(p, WithRetryPolicy(noDelay), WithObserver(func(_ string, attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}))

	_, err := c.Generate(context.Background(), testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestNewPromptContext_MissingStandard(t *testing.T) {
	cfg := &project.Config{Name: "x", Type: project.TypeCLI, Language: project.LanguageGo}
	_, err := NewPromptContext("s", "i", cfg, standards.NewCache(nil), []string{"security"}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, standards.ErrMissingDocument))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	assert.Zero(t, p.Delay(1))
	assert.Equal(t, 100*time.Millisecond, p.Delay(2))
	assert.Equal(t, 200*time.Millisecond, p.Delay(3))
	assert.Equal(t, 300*time.Millisecond, p.Delay(4))
	assert.Equal(t, 300*time.Millisecond, p.Delay(5))

	p.Jitter = true
	for range 20 {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestParseFiles(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		text := "Here you go:\n" + FormatFiles(map[string]string{
			"src/a.ts":        "export const a = 1;",
			"tests/a.test.ts": "test('a', () => {});\n",
		}, "src/a.ts", "tests/a.test.ts")

		entries, err := ParseFiles(text)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "src/a.ts", entries[0].Path)
		assert.Equal(t, "export const a = 1;\n", string(entries[0].Content))
		assert.Equal(t, "tests/a.test.ts", entries[1].Path)
	})

	bad := map[string]string{
		"no blocks":    "just prose",
		"unterminated": "=== FILE: a.txt ===\nbody\n",
		"duplicate":    "=== FILE: a.txt ===\n=== END FILE ===\n=== FILE: a.txt ===\n=== END FILE ===\n",
		"empty path":   "=== FILE:  ===\n=== END FILE ===\n",
	}
	for name, text := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFiles(text)
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}
}
