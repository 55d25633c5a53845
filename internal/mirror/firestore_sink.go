package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errStale = errors.New("stale legacy record")

// FirestoreSink keeps the mirror in the Firestore collection the legacy
// views read from
type FirestoreSink struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
}

// NewFirestoreSink initialises a Firebase app and its Firestore client.
// credentialsFile may be empty to use application default credentials.
func NewFirestoreSink(ctx context.Context, projectID, credentialsFile, collection string, logger *zap.Logger) (*FirestoreSink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	logger.Info("mirror connected to firestore",
		zap.String("projectID", projectID),
		zap.String("collection", collection),
	)

	return &FirestoreSink{client: client, collection: collection, logger: logger}, nil
}

func (s *FirestoreSink) Name() string { return "firestore" }

// DocumentID maps a legacy key to a valid Firestore document id. Keys carry
// free-text issue titles that may contain '/'.
func DocumentID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *FirestoreSink) Apply(ctx context.Context, rec domain.LegacyMaintenance) (bool, error) {
	doc := s.client.Collection(s.collection).Doc(DocumentID(rec.Key))

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			stored, err := snap.DataAt("version")
			if err == nil {
				if v, ok := stored.(int64); ok && v >= rec.Version {
					return errStale
				}
			}
		}
		return tx.Set(doc, rec)
	})
	if errors.Is(err, errStale) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FirestoreSink) Close(context.Context) error {
	return s.client.Close()
}
