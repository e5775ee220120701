package redisstore_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

var _ storefront.Store = &redisstore.RedisStore{}

func TestSetGet(t *testing.T) {
	key := "storedCart"
	expectedData := []byte(`{"Margherita":{"quantity":2,"initialPrice":9.5,"type":"Pizza"}}`)

	_, rdb := getRedisDB(t)

	s := redisstore.New(rdb)
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

func TestEmptyGet(t *testing.T) {
	_, rdb := getRedisDB(t)

	s := redisstore.New(rdb)
	_, found, err := s.Get("currentAccessToken")

	if err != nil {
		t.Fatal(err)
	}

	if found {
		t.Fatalf("expected 'false' got '%v'", found)
	}
}

func TestGetExpired(t *testing.T) {
	key := "menu"

	mr, rdb := getRedisDB(t)

	s := redisstore.New(rdb)
	if err := s.Set(key, []byte("[]"), time.Now().Add(1*time.Minute)); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(2 * time.Minute)
	_, found, err := s.Get(key)

	if err != nil {
		t.Fatal(err)
	}

	if found {
		t.Fatalf("expected 'false' got '%v'", found)
	}
}

func TestSetWithoutExpiry(t *testing.T) {
	mr, rdb := getRedisDB(t)

	s := redisstore.New(rdb)
	if err := s.Set("storedCart", []byte("{}"), time.Time{}); err != nil {
		t.Fatal(err)
	}

	if ttl := mr.TTL("storedCart"); ttl != 0 {
		t.Fatalf("expected no ttl got '%v'", ttl)
	}
}

func TestSetInThePastDeletes(t *testing.T) {
	_, rdb := getRedisDB(t)

	s := redisstore.New(rdb)
	s.Set("menu", []byte("[]"), time.Time{})
	if err := s.Set("menu", []byte("[]"), time.Now().Add(-1*time.Second)); err != nil {
		t.Fatal(err)
	}

	if _, found, _ := s.Get("menu"); found {
		t.Fatalf("expected 'false' got '%v'", found)
	}
}

func TestDelete(t *testing.T) {
	_, rdb := getRedisDB(t)

	s := redisstore.New(rdb)
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

func TestPrefix(t *testing.T) {
	mr, rdb := getRedisDB(t)

	a := redisstore.New(rdb, redisstore.WithPrefix("client:a:"))
	b := redisstore.New(rdb, redisstore.WithPrefix("client:b:"))

	a.Set("storedCart", []byte("a"), time.Time{})
	b.Set("storedCart", []byte("b"), time.Time{})

	if got, _ := mr.Get("client:a:storedCart"); got != "a" {
		t.Fatalf("expected 'a' got '%s'", got)
	}

	data, _, _ := b.Get("storedCart")
	if string(data) != "b" {
		t.Fatalf("expected 'b' got '%s'", data)
	}
}

func TestBackendError(t *testing.T) {
	mr, rdb := getRedisDB(t)
	mr.Close()

	s := redisstore.New(rdb)
	if _, _, err := s.Get("storedCart"); err == nil {
		t.Fatal("expected an error from a closed server")
	}
}

func getRedisDB(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}
