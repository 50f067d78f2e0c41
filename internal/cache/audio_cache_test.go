package cache

import (
	"os"
	"testing"
)

func TestKeyIsDeterministic(t *testing.T) {
	a := Key("The keeper climbed the stairs.", "af_heart", "en")
	b := Key("The keeper climbed the stairs.", "af_heart", "en")
	if a != b {
		t.Errorf("same inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestKeyVariesWithEachInput(t *testing.T) {
	base := Key("prompt", "voice", "en")
	cases := map[string]string{
		"prompt": Key("other prompt", "voice", "en"),
		"voice":  Key("prompt", "other voice", "en"),
		"lang":   Key("prompt", "voice", "tr"),
	}
	for name, got := range cases {
		if got == base {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestGetPutRoundTrip(t *testing.T) {
	c, err := New(4, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("p", "v", "en")
	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache must miss")
	}

	c.Put(key, []byte("mp3-bytes"))
	data, ok := c.Get(key)
	if !ok || string(data) != "mp3-bytes" {
		t.Fatalf("Get after Put = %q, %v", data, ok)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	c, err := New(2, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Put("k1", []byte("a"))
	c.Put("k2", []byte("b"))
	c.Put("k3", []byte("c"))

	if _, ok := c.Get("k1"); ok {
		t.Error("k1 should have been evicted")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Error("k3 should still be cached")
	}
}

func TestMaterializeReusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	c, err := New(4, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("p", "v", "en")
	first, err := c.Materialize(key, []byte("clip"))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	// A second call with different bytes keeps the original file.
	second, err := c.Materialize(key, []byte("different"))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %s vs %s", first, second)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(data) != "clip" {
		t.Errorf("file content = %q, want original clip", data)
	}
}
