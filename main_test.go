package recskema_test

import (
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reoring/recskema"
)

func TestMain(m *testing.M) {
	recskema.SetLogger(zerolog.Nop())
	os.Exit(m.Run())
}

// declare builds a schema in a private store so tests never collide in the
// default one.
func declare(t *testing.T, st *recskema.Store, name string, fields []recskema.Field, opts ...recskema.SchemaOpt) *recskema.Schema {
	t.Helper()
	s, err := recskema.Declare(name, fields, append([]recskema.SchemaOpt{recskema.WithStore(st)}, opts...)...)
	if err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
	return s
}
