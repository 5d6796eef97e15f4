package mirror

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore mirrors reports into one Firestore collection, one document
// per external id.  FIRESTORE_EMULATOR_HOST is honoured by the client
// library, which is how local stacks point it at the emulator.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore opens a client for projectID.  Extra options (for
// example option.WithCredentialsFile) are passed through.
func NewFirestore(ctx context.Context, projectID, collection string, opts ...option.ClientOption) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("firestore: missing project id")
	}
	if collection == "" {
		collection = "signalements"
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: new client: %w", err)
	}
	return &Firestore{client: client, collection: collection}, nil
}

func (f *Firestore) doc(key string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(key)
}

func (f *Firestore) Put(ctx context.Context, key string, doc Document, merge bool) error {
	data := normalize(doc)
	var err error
	if merge {
		_, err = f.doc(key).Set(ctx, data, firestore.MergeAll)
	} else {
		_, err = f.doc(key).Set(ctx, data)
	}
	return err
}

func (f *Firestore) Get(ctx context.Context, key string) (Document, error) {
	snap, err := f.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Document(snap.Data()), nil
}

func (f *Firestore) Delete(ctx context.Context, key string) error {
	_, err := f.doc(key).Delete(ctx)
	return err
}

func (f *Firestore) List(ctx context.Context) (map[string]Document, error) {
	iter := f.client.Collection(f.collection).Documents(ctx)
	defer iter.Stop()
	out := map[string]Document{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out[snap.Ref.ID] = Document(snap.Data())
	}
	return out, nil
}

func (f *Firestore) Close() error { return f.client.Close() }

// normalize converts values Firestore cannot encode.  Unsigned integers
// are not supported by the client library and become int64.
func normalize(doc Document) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case uint64:
			out[k] = int64(t)
		case uint:
			out[k] = int64(t)
		case uint32:
			out[k] = int64(t)
		default:
			out[k] = v
		}
	}
	return out
}
