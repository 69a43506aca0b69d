package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bndl/internal/app"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	// Act
	cfg, shouldExit, err := Parse([]string{"."}, &bytes.Buffer{})

	// Assert
	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, app.CommandBuild, cfg.Command)
	assert.Equal(t, ".", cfg.Input)
	assert.Equal(t, "tsconfig.json", cfg.Project)
	assert.Equal(t, "bndl.hcl", cfg.SettingsPath)
	assert.False(t, cfg.Watch)
}

func TestParse_InterleavedFlagsAndInput(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"--clean", "src", "-p", "tsconfig.build.json", "--outDir", "build", "-m", "--no-bundle"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "src", cfg.Input)
	assert.Equal(t, "tsconfig.build.json", cfg.Project)
	assert.Equal(t, "build", cfg.OutDir)
	assert.True(t, cfg.Clean)
	assert.True(t, cfg.Minify)
	assert.True(t, cfg.NoBundle)
}

func TestParse_LongAndShortNames(t *testing.T) {
	t.Parallel()

	short, _, err := Parse([]string{"-w", "-p", "a.json", "--exec", "node dist/index.js"}, &bytes.Buffer{})
	require.NoError(t, err)
	long, _, err := Parse([]string{"--watch", "--project", "a.json", "--exec", "node dist/index.js"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, short, long)
	assert.True(t, long.Watch)
	assert.Equal(t, "node dist/index.js", long.Exec)
}

func TestParse_ProjectDotMeansDefault(t *testing.T) {
	t.Parallel()
	cfg, _, err := Parse([]string{"-p", ".", "src"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "tsconfig.json", cfg.Project)
}

func TestParse_TerminatorKeepsDashedInput(t *testing.T) {
	t.Parallel()
	cfg, _, err := Parse([]string{"--clean", "--", "-weird"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "-weird", cfg.Input)
}

func TestParse_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	_, shouldExit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Contains(t, out.String(), "only-bundle")
}

func TestParse_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"--nope"}, want: "flag provided but not defined"},
		{name: "two inputs", args: []string{"src", "lib"}, want: "at most one input"},
		{name: "bad log format", args: []string{"--log-format", "xml", "."}, want: "invalid log-format"},
		{name: "bad log level", args: []string{"--log-level", "loud", "."}, want: "invalid log-level"},
		{name: "bundle conflict", args: []string{"--only-bundle", "--no-bundle"}, want: "cannot be combined"},
		{name: "exec without watch", args: []string{"--exec", "node ."}, want: "--exec requires --watch"},
		{name: "publish in watch", args: []string{"-w", "--publish"}, want: "watch mode"},
		{name: "negative workers", args: []string{"--workers", "-2"}, want: "invalid workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.want)
		})
	}
}

func TestParse_Convert(t *testing.T) {
	t.Parallel()

	cfg, shouldExit, err := Parse([]string{"convert", "tsconfig.build.json", "--save", "-m"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, app.CommandConvert, cfg.Command)
	assert.Equal(t, "tsconfig.build.json", cfg.Project)
	assert.True(t, cfg.Save)
	assert.True(t, cfg.Minify)
}

func TestParse_ConvertDefaults(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"convert"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "tsconfig.json", cfg.Project)
	assert.False(t, cfg.Save)
}

func TestParse_ConvertRejectsBuildFlags(t *testing.T) {
	t.Parallel()
	_, _, err := Parse([]string{"convert", "--watch"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
