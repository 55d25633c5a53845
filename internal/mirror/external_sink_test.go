package mirror_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMongoSink_Integration(t *testing.T) {
	uri := os.Getenv("MIRROR_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MIRROR_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := mirror.NewMongoSink(ctx, uri, "nyumbanii_test", "maintenance_"+time.Now().Format("150405"), zap.NewNop())
	if err != nil {
		t.Skipf("mongo unreachable: %v", err)
	}
	defer sink.Close(context.Background())

	applied, err := sink.Apply(ctx, legacyRecord(2, domain.StatusInProgress))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = sink.Apply(ctx, legacyRecord(1, domain.StatusPending))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestFirestoreSink_Integration(t *testing.T) {
	project := os.Getenv("MIRROR_TEST_FIRESTORE_PROJECT")
	if project == "" || os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("firestore emulator not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := mirror.NewFirestoreSink(ctx, project, "", "maintenance_test", zap.NewNop())
	require.NoError(t, err)
	defer sink.Close(context.Background())

	applied, err := sink.Apply(ctx, legacyRecord(2, domain.StatusInProgress))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = sink.Apply(ctx, legacyRecord(1, domain.StatusPending))
	require.NoError(t, err)
	assert.False(t, applied)
}
