package storage

import (
	"testing"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
)

func TestStore(t *testing.T) {
	st, err := Store(config.Storage{}, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(Nop); !ok {
		t.Errorf("expected the no-op storage, got %T", st)
	}
	if st.Has("anything") {
		t.Errorf("the no-op storage shouldn't have files")
	}
	if url, err := st.Save("anything"); err != nil || url != "" {
		t.Errorf("unexpected save result: %v, %v", url, err)
	}

	if _, err = Store(config.Storage{Provider: "oracle"}, logger.Default()); err == nil {
		t.Errorf("oracle with no access url should fail")
	}
}
