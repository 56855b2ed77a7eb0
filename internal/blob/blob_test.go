package blob

import (
	"context"
	"errors"
	"testing"
)

func TestKeysAreDeterministic(t *testing.T) {
	cases := []struct {
		pageNum    int
		background string
		final      string
	}{
		{3, "layout/job-1/pages/page_03_bg.png", "layout/job-1/pages/page_03.png"},
		{12, "layout/job-1/pages/page_12_bg.png", "layout/job-1/pages/page_12.png"},
		{-1, "layout/job-1/pages/front_cover_bg.png", "layout/job-1/pages/front_cover.png"},
		{-2, "layout/job-1/pages/back_cover_bg.png", "layout/job-1/pages/back_cover.png"},
	}
	for _, tc := range cases {
		if got := BackgroundKey("job-1", tc.pageNum); got != tc.background {
			t.Errorf("BackgroundKey(%d) = %q, want %q", tc.pageNum, got, tc.background)
		}
		if got := FinalKey("job-1", tc.pageNum); got != tc.final {
			t.Errorf("FinalKey(%d) = %q, want %q", tc.pageNum, got, tc.final)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
	}
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	stores["fs"] = fs

	ctx := context.Background()
	payload := []byte{0x89, 'P', 'N', 'G', 0x01, 0x02}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			key := BackgroundKey("job-xyz", 4)
			locator, err := store.Write(ctx, key, payload, Metadata{"content-type": "image/png"})
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := store.Read(ctx, locator)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(got) != string(payload) {
				t.Fatalf("round trip mismatch: got %v", got)
			}
			ok, err := store.Exists(ctx, key)
			if err != nil || !ok {
				t.Fatalf("Exists = %v, %v; want true, nil", ok, err)
			}
		})
	}
}

func TestDuplicateWriteOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := FinalKey("job-1", 1)
	if _, err := store.Write(ctx, key, []byte("first"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(ctx, key, []byte("second"), nil); err != nil {
		t.Fatal(err)
	}
	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("got %q, want overwrite to win", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = fs.Read(context.Background(), "layout/nope/pages/page_01.png")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Write(context.Background(), "../outside.png", []byte("x"), nil); err == nil {
		t.Fatal("expected error for key escaping root")
	}
}

func TestReadVariantFallsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Write(ctx, "assets/forest.jpg", []byte("jpegdata"), nil); err != nil {
		t.Fatal(err)
	}

	data, resolved, err := ReadVariant(ctx, store, "assets/forest.png")
	if err != nil {
		t.Fatalf("ReadVariant: %v", err)
	}
	if resolved != "assets/forest.jpg" {
		t.Fatalf("resolved = %q, want jpg variant", resolved)
	}
	if string(data) != "jpegdata" {
		t.Fatalf("data = %q", data)
	}

	if _, _, err := ReadVariant(ctx, store, "assets/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want wrapped ErrNotFound", err)
	}
}

func TestVariantKeysOrder(t *testing.T) {
	got := VariantKeys("a/b.png")
	want := []string{"a/b.png", "a/b.jpg", "a/b.jpeg"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if got := VariantKeys("a/b.webp"); len(got) != 1 || got[0] != "a/b.webp" {
		t.Fatalf("unknown extension should return itself, got %v", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("assets/forest.png"); got != "assets/forest_mask.png" {
		t.Fatalf("MaskKey = %q", got)
	}
	if got := MaskKey("assets/deep/sea.jpeg"); got != "assets/deep/sea_mask.png" {
		t.Fatalf("MaskKey = %q", got)
	}
}

func TestReadMaskOptional(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data, key, err := ReadMask(ctx, store, "assets/forest.png")
	if err != nil || data != nil || key != "" {
		t.Fatalf("missing mask should be silent: %v %q %v", data, key, err)
	}

	if _, err := store.Write(ctx, "assets/forest_mask.png", []byte("mask"), nil); err != nil {
		t.Fatal(err)
	}
	data, key, err = ReadMask(ctx, store, "assets/forest.png")
	if err != nil {
		t.Fatal(err)
	}
	if key != "assets/forest_mask.png" || string(data) != "mask" {
		t.Fatalf("got %q %q", key, data)
	}
}
