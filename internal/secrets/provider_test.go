package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVault map[string]string

func (s stubVault) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestProvider_EnvironmentSource(t *testing.T) {
	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsVaultEnabled())

	t.Setenv("NYUMBANII_TEST_SECRET", "s3cret")
	value, err := p.GetSecret(context.Background(), "NYUMBANII_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	_, err = p.GetSecret(context.Background(), "NYUMBANII_MISSING_SECRET")
	assert.Error(t, err)
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	p := &Provider{source: SourceVault, vault: stubVault{"jwt-secret": "from-vault"}, logger: zap.NewNop()}

	value, err := p.GetSecretOrEnv(context.Background(), "jwt-secret", "NYUMBANII_JWT_OVERRIDE")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	t.Setenv("NYUMBANII_JWT_OVERRIDE", "from-env")
	value, err = p.GetSecretOrEnv(context.Background(), "jwt-secret", "NYUMBANII_JWT_OVERRIDE")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestNewProvider_VaultRequiresName(t *testing.T) {
	_, err := NewProvider(&ProviderConfig{Source: SourceVault}, zap.NewNop())
	assert.Error(t, err)
}
