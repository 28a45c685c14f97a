package cache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

func testZones(key string) []models.Zone {
	return []models.Zone{
		{
			Key:                 key,
			Name:                "East Puget Sound Lowlands",
			State:               "WA",
			ObservationStations: []string{"https://api.weather.gov/stations/KPAE"},
		},
	}
}

func TestInMemoryCacheSetGet(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()
	zones := testZones("WAZ558")

	if err := c.Set(ctx, "zones", zones, time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, err := c.Get(ctx, "zones")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !reflect.DeepEqual(got, zones) {
		t.Errorf("got %+v, want %+v", got, zones)
	}
}

func TestInMemoryCacheMiss(t *testing.T) {
	c := NewInMemoryCache()

	_, ok, err := c.Get(context.Background(), "zones")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestInMemoryCacheExpiration(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "zones", testZones("WAZ558"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, ok, err := c.Get(ctx, "zones")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Error("expected miss after expiration")
	}
}

func TestInMemoryCacheOverwrite(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "zones", testZones("WAZ558"), time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	second := testZones("ORZ006")
	if err := c.Set(ctx, "zones", second, time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, _ := c.Get(ctx, "zones")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !reflect.DeepEqual(got, second) {
		t.Errorf("got %+v, want last written value %+v", got, second)
	}
}

// Concurrent readers and writers must never observe a torn value. Run with
// -race to catch unsynchronized access.
func TestInMemoryCacheConcurrentAccess(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = c.Set(ctx, "zones", testZones(fmt.Sprintf("Z%03d", n)), time.Minute)
		}(i)
		go func() {
			defer wg.Done()
			got, ok, err := c.Get(ctx, "zones")
			if err != nil {
				t.Errorf("Get returned error: %v", err)
			}
			if ok && len(got) != 1 {
				t.Errorf("observed torn value: %+v", got)
			}
		}()
	}
	wg.Wait()
}
