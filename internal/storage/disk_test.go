package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisk_Save(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(filepath.Join(dir, "uploads"), "/uploads/")
	if err != nil {
		t.Fatal(err)
	}

	a, err := d.Save(context.Background(), "../../Passport.PDF", strings.NewReader("scan"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := d.Save(context.Background(), "Passport.PDF", strings.NewReader("scan"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Name == b.Name {
		t.Error("same original name produced the same stored name")
	}
	if !strings.HasSuffix(a.Name, ".pdf") || !strings.HasPrefix(a.URL, "/uploads/") {
		t.Errorf("stored = %+v", a)
	}
	if a.Size != 4 {
		t.Errorf("size = %d", a.Size)
	}
	body, err := os.ReadFile(filepath.Join(d.Dir(), a.Name))
	if err != nil || string(body) != "scan" {
		t.Errorf("file = %q, %v", body, err)
	}

	if err := d.Remove(a.Name); err != nil {
		t.Fatal(err)
	}
	if err := d.Remove(a.Name); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}
