package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithHeader(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		c := &Config{}
		err := WithHeader("Custom header")(c)

		require.NoError(t, err)
		assert.Equal(t, "Custom header", c.Header)
	})

	t.Run("empty header is allowed", func(t *testing.T) {
		c := &Config{Header: "existing"}
		err := WithHeader("")(c)

		require.NoError(t, err)
		assert.Equal(t, "", c.Header)
	})
}

func TestWithModule(t *testing.T) {
	tests := []struct {
		name    string
		module  string
		wantErr bool
	}{
		{"valid", "example.com/shop/gen", false},
		{"single segment", "shop", false},
		{"empty", "", true},
		{"space", "example.com/my shop", true},
		{"tab", "example.com/\tshop", true},
		{"backslash", `example.com\shop`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			err := WithModule(tt.module)(c)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				assert.Empty(t, c.Module)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.module, c.Module)
			}
		})
	}
}

func TestWithTarget(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithTarget(TargetGraphQL)(c))
		assert.Equal(t, TargetGraphQL, c.Target)
	})

	t.Run("unknown", func(t *testing.T) {
		c := &Config{}
		err := WithTarget(Target(42))(c)
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})
}

func TestWithIDStrategy(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithIDStrategy(IDIndex)(c))
	assert.Equal(t, IDIndex, c.IDStrategy)

	err := WithIDStrategy(IDStrategy(9))(c)
	assert.True(t, IsConfigError(err))
	assert.Equal(t, IDIndex, c.IDStrategy)
}

func TestWithOwnership(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithOwnership(Locked)(c))
	assert.Equal(t, Locked, c.Ownership)

	err := WithOwnership(Ownership(9))(c)
	assert.True(t, IsConfigError(err))
}

func TestWithPersist(t *testing.T) {
	t.Run("persist", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithPersist(true)(c))
		assert.True(t, c.Persist)
		assert.False(t, c.PersistTimestamps)
	})

	t.Run("timestamps imply persist", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithPersistTimestamps(true)(c))
		assert.True(t, c.Persist)
		assert.True(t, c.PersistTimestamps)
	})

	t.Run("timestamps off keeps persist", func(t *testing.T) {
		c := &Config{Persist: true, PersistTimestamps: true}
		require.NoError(t, WithPersistTimestamps(false)(c))
		assert.True(t, c.Persist)
		assert.False(t, c.PersistTimestamps)
	})
}

func TestWithPersistFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected string
		wantErr  bool
	}{
		{"json", "json", "json", false},
		{"msgpack", "msgpack", "msgpack", false},
		{"default", "", "json", false},
		{"unknown", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			err := WithPersistFormat(tt.format)(c)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, c.PersistFormat)
			}
		})
	}
}

func TestWithDeriveList(t *testing.T) {
	t.Run("adds keys once", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithDeriveList("yaml", "msgpack")(c))
		require.NoError(t, WithDeriveList("yaml")(c))
		assert.Equal(t, []string{"yaml", "msgpack"}, c.DeriveList)
	})

	for _, key := range []string{"", "json", "a b", "a:b", `a"b`, "a`b"} {
		t.Run("rejects "+key, func(t *testing.T) {
			err := WithDeriveList(key)(&Config{})
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestWithUsePaths(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithUsePaths("example.com/hooks", "example.com/hooks")(c))
	assert.Equal(t, []string{"example.com/hooks"}, c.UsePaths)

	assert.True(t, IsConfigError(WithUsePaths("")(c)))
}

func TestWithWorkers(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithWorkers(4)(c))
	assert.Equal(t, 4, c.Workers)

	require.NoError(t, WithWorkers(0)(c))
	assert.Zero(t, c.Workers)

	assert.True(t, IsConfigError(WithWorkers(-1)(c)))
}

func TestWithAlwaysProcess(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithAlwaysProcess(true)(c))
	assert.True(t, c.AlwaysProcess)
}

func TestWithLogger(t *testing.T) {
	c := &Config{}
	l := zap.NewExample()
	require.NoError(t, WithLogger(l)(c))
	assert.Same(t, l, c.Logger)

	assert.True(t, IsConfigError(WithLogger(nil)(c)))
}

func TestConfigApply(t *testing.T) {
	t.Run("applies multiple options", func(t *testing.T) {
		c := &Config{}
		err := c.Apply(
			WithModule("example.com/shop"),
			WithOwnership(Shared),
			WithHeader("Custom"),
		)

		require.NoError(t, err)
		assert.Equal(t, "example.com/shop", c.Module)
		assert.Equal(t, Shared, c.Ownership)
		assert.Equal(t, "Custom", c.Header)
	})

	t.Run("stops on first error", func(t *testing.T) {
		c := &Config{}
		err := c.Apply(
			WithModule(""),     // Error
			WithHeader("Skip"), // Should not be applied
		)

		require.Error(t, err)
		assert.Empty(t, c.Module)
		assert.Empty(t, c.Header)
	})
}

func TestConfigApplyAll(t *testing.T) {
	t.Run("collects all errors", func(t *testing.T) {
		c := &Config{}
		err := c.ApplyAll(
			WithModule(""),           // Error
			WithPersistFormat("xml"), // Error
			WithHeader("Applied"),
		)

		require.Error(t, err)
		// errors.Join returns an error with Unwrap() []error
		unwrapper, ok := err.(interface{ Unwrap() []error })
		require.True(t, ok, "error should implement Unwrap() []error")
		assert.Equal(t, 2, len(unwrapper.Unwrap()))
		assert.Equal(t, "Applied", c.Header)
	})

	t.Run("returns nil when all succeed", func(t *testing.T) {
		c := &Config{}
		err := c.ApplyAll(
			WithModule("example.com/shop"),
			WithPersist(true),
		)

		require.NoError(t, err)
	})
}

func TestNewConfig(t *testing.T) {
	t.Run("creates config with options", func(t *testing.T) {
		c, err := NewConfig(
			WithModule("example.com/shop"),
			WithIDStrategy(IDRandom),
		)

		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "example.com/shop", c.Module)
		assert.Equal(t, IDRandom, c.IDStrategy)
	})

	t.Run("fills defaults", func(t *testing.T) {
		c, err := NewConfig()

		require.NoError(t, err)
		assert.Equal(t, "json", c.PersistFormat)
		assert.Positive(t, c.Workers)
		assert.NotNil(t, c.Logger)
		assert.Equal(t, TargetDomain, c.Target)
		assert.Equal(t, IDHash, c.IDStrategy)
		assert.Equal(t, Exclusive, c.Ownership)
	})

	t.Run("returns error on invalid option", func(t *testing.T) {
		c, err := NewConfig(
			WithModule(""),
		)

		require.Error(t, err)
		assert.Nil(t, c)
	})
}

func TestMustNewConfig(t *testing.T) {
	t.Run("returns config on success", func(t *testing.T) {
		c := MustNewConfig(
			WithModule("example.com/shop"),
		)

		require.NotNil(t, c)
		assert.Equal(t, "example.com/shop", c.Module)
	})

	t.Run("panics on error", func(t *testing.T) {
		assert.Panics(t, func() {
			MustNewConfig(WithModule(""))
		})
	})
}
