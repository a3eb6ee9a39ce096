// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postprocess

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

func TestTidy(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leading meta line",
			in:   "Here is the cleaned text:\n\nThe investigators arrive.",
			want: "The investigators arrive.",
		},
		{
			name: "case insensitive",
			in:   "HERE'S THE OUTPUT:\nBody",
			want: "Body",
		},
		{
			name: "inline prefix",
			in:   "Here's the normalized text: The cult meets at night.",
			want: "The cult meets at night.",
		},
		{
			name: "chatter in the middle",
			in:   "First part.\n\nRemoving page artifacts from page 12...\n\nSecond part.",
			want: "First part.\n\nSecond part.",
		},
		{
			name: "blank runs and spaces",
			in:   "One   two.\n\n\n\n   \nThree.\r\n",
			want: "One two.\n\nThree.",
		},
		{
			name: "ordinary text untouched",
			in:   "Here is the key to the vault.",
			want: "Here is the key to the vault.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tidy(tt.in, nil))
		})
	}
}

func TestTidy_ExtraPatterns(t *testing.T) {
	extra, err := CompilePatterns([]string{`^Page \d+ of \d+$`})
	require.NoError(t, err)

	got := Tidy("Text.\npage 3 of 90\nMore text.", extra)
	assert.Equal(t, "Text.\n\nMore text.", got)
}

func TestCompilePatterns_Invalid(t *testing.T) {
	_, err := CompilePatterns([]string{"(unclosed"})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestFormatHeadings(t *testing.T) {
	in := "ARRIVING IN NEW YORK\nThe ship docks.\nPulp Considerations\nLink: Chapter Two\n" +
		"## ALREADY A HEADING\n--- Page 4 ---\nOK\nCHAPTER 2: THE BIG APPLE\nMixed CASE line"
	got := FormatHeadings(in, []string{"Pulp Considerations"})

	assert.Equal(t, "## ARRIVING IN NEW YORK\nThe ship docks.\n## Pulp Considerations\n### Link: Chapter Two\n"+
		"## ALREADY A HEADING\n--- Page 4 ---\nOK\n## CHAPTER 2: THE BIG APPLE\nMixed CASE line", got)
}

func TestIsCapsLine(t *testing.T) {
	assert.True(t, isCapsLine("HARLEM"))
	assert.True(t, isCapsLine("HORROR AT JU-JU HOUSE"))
	assert.False(t, isCapsLine("NO"), "too short")
	assert.False(t, isCapsLine("2 DAYS LATER"), "must start with a capital")
	assert.False(t, isCapsLine("THE Carlyle ESTATE"))
}

func TestCountMarker(t *testing.T) {
	assert.Equal(t, 2, CountMarker("the [UNCERTAIN] cult [UNCERTAIN] met", "[UNCERTAIN]"))
	assert.Equal(t, 0, CountMarker("anything", ""))
}

func TestProcessDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "md/book/001_intro.md",
		[]byte("Here is the cleaned text:\nTHE CARLYLE ESTATE\nA [UNCERTAIN] mansion.\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "md/book/002_done.md", []byte("Nothing to do.\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "md/book/003.md.partial", []byte("Here is the output:\n"), 0o644))

	p, err := New(types.PostProcessConfig{UncertainMarker: "[UNCERTAIN]"}, WithFs(fs))
	require.NoError(t, err)

	var buf bytes.Buffer
	summary, err := p.ProcessDir(context.Background(), "md", Steps{Tidy: true, Headings: true}, &buf)
	require.NoError(t, err)
	assert.Equal(t, Summary{Changed: 1, Unchanged: 1, Markers: 1}, summary)
	assert.Equal(t, 2, summary.Total())
	assert.False(t, summary.HasFailures())

	data, err := afero.ReadFile(fs, "md/book/001_intro.md")
	require.NoError(t, err)
	assert.Equal(t, "## THE CARLYLE ESTATE\nA [UNCERTAIN] mansion.\n", string(data))

	partial, err := afero.ReadFile(fs, "md/book/003.md.partial")
	require.NoError(t, err)
	assert.Equal(t, "Here is the output:\n", string(partial))

	assert.Contains(t, buf.String(), "updated book/001_intro.md (tidy+headings, 1 uncertain)")
	assert.Contains(t, buf.String(), "uncertain markers: 1")
}

func TestProcessDir_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "md/a.md", []byte("PROSPERO HOUSE\n\n\n\nText  here."), 0o644))
	p, err := New(types.PostProcessConfig{}, WithFs(fs))
	require.NoError(t, err)

	steps := Steps{Tidy: true, Headings: true}
	first, err := p.ProcessDir(context.Background(), "md", steps, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Changed)

	second, err := p.ProcessDir(context.Background(), "md", steps, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Unchanged)
}

func TestProcessDir_MissingDir(t *testing.T) {
	p, err := New(types.PostProcessConfig{}, WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	_, err = p.ProcessDir(context.Background(), "nope", Steps{Tidy: true}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestProcessDir_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "md/a.md", []byte("x"), 0o644))
	p, err := New(types.PostProcessConfig{}, WithFs(fs))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProcessDir(ctx, "md", Steps{Tidy: true}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
