package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shoenig/test/must"

	"github.com/vovakirdan/messenger-server/internal/store"
	"github.com/vovakirdan/messenger-server/internal/store/storetest"
)

const testURIEnv = "MESSENGER_TEST_MONGODB_URI"

func TestMongoStore(t *testing.T) {
	uri := os.Getenv(testURIEnv)
	if uri == "" {
		t.Skipf("%s not set", testURIEnv)
	}

	storetest.Suite(t, func(t *testing.T) store.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s, err := Open(ctx, uri, "messenger_test", "messages_"+uuid.NewString())
		must.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}

func TestOpenRejectsEmptyURI(t *testing.T) {
	_, err := Open(context.Background(), "", "db", "coll")
	must.Error(t, err)
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Open(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200", "db", "coll")
	must.Error(t, err)
}
