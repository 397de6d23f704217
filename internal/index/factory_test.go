package index

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		wantKind Kind
		wantErr  bool
	}{
		{name: "linear", kind: KindLinear, wantKind: KindLinear},
		{name: "kdtree", kind: KindKDTree, wantKind: KindKDTree},
		{name: "lsh", kind: KindLSH, wantKind: KindLSH},
		{name: "unknown", kind: Kind("hnsw"), wantErr: true},
		{name: "empty", kind: Kind(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := New(tt.kind, LSHConfig{Seed: 1})
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			idx.Build(nil)
			if got := idx.Stats().Kind; got != tt.wantKind {
				t.Errorf("Stats().Kind = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindLinear, KindKDTree, KindLSH} {
		if !k.Valid() {
			t.Errorf("Kind(%q).Valid() = false, want true", k)
		}
	}
	if Kind("flat").Valid() {
		t.Error(`Kind("flat").Valid() = true, want false`)
	}
}
