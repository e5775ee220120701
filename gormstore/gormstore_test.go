package gormstore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/gormstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ storefront.Store = &gormstore.GORMStore{}

func TestSetGet(t *testing.T) {
	key := "storedCart"
	expectedData := []byte(`{"Margherita":{"quantity":1,"initialPrice":9.5,"type":"Pizza"}}`)

	s := newStore(t, getDB(t))

	if err := s.Set(key, expectedData, time.Now().Add(1*time.Hour)); err != nil {
		t.Fatal(err)
	}
	data, found, err := s.Get(key)

	if err != nil {
		t.Fatal(err)
	}

	if string(data) != string(expectedData) {
		t.Fatalf("expected '%s' got '%s'", expectedData, data)
	}

	if !found {
		t.Fatalf("expected 'true' got '%v'", found)
	}
}

func TestOverwrite(t *testing.T) {
	s := newStore(t, getDB(t))

	s.Set("storedCart", []byte("first"), time.Now().Add(-1*time.Hour))
	if err := s.Set("storedCart", []byte("second"), time.Time{}); err != nil {
		t.Fatal(err)
	}

	data, found, err := s.Get("storedCart")
	if err != nil {
		t.Fatal(err)
	}

	if !found || string(data) != "second" {
		t.Fatalf("expected 'second' got '%s' (found=%v)", data, found)
	}
}

func TestEmptyGet(t *testing.T) {
	s := newStore(t, getDB(t))

	_, found, err := s.Get("currentAccessToken")

	if err != nil {
		t.Fatal(err)
	}

	if found {
		t.Fatalf("expected 'false' got '%v'", found)
	}
}

func TestGetExpired(t *testing.T) {
	s := newStore(t, getDB(t))

	s.Set("menu", []byte("[]"), time.Now().Add(-1*time.Hour))
	_, found, err := s.Get("menu")

	if err != nil {
		t.Fatal(err)
	}

	if found {
		t.Fatalf("expected 'false' got '%v'", found)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, getDB(t))

	s.Set("currentAccessToken", []byte(`{"email":"a@b.com","Id":"X"}`), time.Time{})
	if err := s.Delete("currentAccessToken"); err != nil {
		t.Fatal(err)
	}

	_, found, err := s.Get("currentAccessToken")
	if err != nil {
		t.Fatal(err)
	}

	if found {
		t.Fatalf("expected 'false' got '%v'", found)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.db")

	db1 := openDB(t, path)
	s1 := newStore(t, db1)
	s1.Set("storedCart", []byte("{}"), time.Time{})
	sqlDB, _ := db1.DB()
	sqlDB.Close()

	s2 := newStore(t, openDB(t, path))
	data, found, err := s2.Get("storedCart")
	if err != nil {
		t.Fatal(err)
	}

	if !found || string(data) != "{}" {
		t.Fatalf("expected '{}' got '%s' (found=%v)", data, found)
	}
}

func TestPeriodicCleanup(t *testing.T) {
	expectedData := []byte("hello world")

	db := getDB(t)
	s := newStore(t, db)

	s.Set("menu", expectedData, time.Now().Add(1*time.Hour))
	s.Set("storedCart", expectedData, time.Time{})
	s.Set("stale", expectedData, time.Now().Add(10*time.Millisecond))

	stop := make(chan (struct{}))
	go s.PeriodicCleanUp(20*time.Millisecond, stop)
	time.Sleep(50 * time.Millisecond)
	stop <- struct{}{}

	var result struct {
		Count int
	}

	db.Raw("SELECT count(*) as count FROM local_storage").Scan(&result)

	if result.Count != 2 {
		t.Fatalf("expected 2 items but got '%d'", result.Count)
	}
}

func newStore(t *testing.T, db *gorm.DB) *gormstore.GORMStore {
	s, err := gormstore.New(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func getDB(t *testing.T) *gorm.DB {
	return openDB(t, filepath.Join(t.TempDir(), "storage.db"))
}

func openDB(t *testing.T, path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}
	return db
}
