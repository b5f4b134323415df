package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
	"github.com/runoshun/tokenscope/internal/usecase"
)

func TestShowConfig_Execute(t *testing.T) {
	t.Run("returns both config infos and effective config", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		manager.ProjectConfigInfo = domain.ConfigInfo{
			Path:    "/test/.tokenscope/config.toml",
			Content: "[editor]\ntop_p = 5",
			Exists:  true,
		}
		manager.GlobalConfigInfo = domain.ConfigInfo{
			Path:    "/home/test/.config/tokenscope/config.toml",
			Content: "[log]\nlevel = \"debug\"",
			Exists:  true,
		}
		loader := testutil.NewMockConfigLoader()
		loader.Config.Editor.TopP = 5

		uc := usecase.NewShowConfig(manager, loader)
		out, err := uc.Execute(context.Background(), usecase.ShowConfigInput{})

		require.NoError(t, err)
		assert.Equal(t, "/test/.tokenscope/config.toml", out.ProjectConfig.Path)
		assert.Equal(t, "[editor]\ntop_p = 5", out.ProjectConfig.Content)
		assert.True(t, out.ProjectConfig.Exists)
		assert.Equal(t, "[log]\nlevel = \"debug\"", out.GlobalConfig.Content)
		assert.True(t, out.GlobalConfig.Exists)
		assert.Equal(t, 5, out.EffectiveConfig.Editor.TopP)
	})

	t.Run("handles non-existent files", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		loader := testutil.NewMockConfigLoader()

		out, err := usecase.NewShowConfig(manager, loader).Execute(context.Background(), usecase.ShowConfigInput{})

		require.NoError(t, err)
		assert.False(t, out.ProjectConfig.Exists)
		assert.False(t, out.GlobalConfig.Exists)
		assert.Equal(t, domain.NewDefaultConfig(), out.EffectiveConfig)
	})

	t.Run("passes ignore options to the loader", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		loader := testutil.NewMockConfigLoader()

		_, err := usecase.NewShowConfig(manager, loader).Execute(context.Background(), usecase.ShowConfigInput{IgnoreGlobal: true})

		require.NoError(t, err)
		assert.Equal(t, domain.LoadConfigOptions{IgnoreGlobal: true}, loader.LastOptions)
	})

	t.Run("returns error when config cannot be loaded", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		loader := testutil.NewMockConfigLoader()
		loader.LoadErr = errors.New("parse error")

		_, err := usecase.NewShowConfig(manager, loader).Execute(context.Background(), usecase.ShowConfigInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse error")
	})
}
