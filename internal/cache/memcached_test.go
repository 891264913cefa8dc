package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kjstillabower/weather-prediction-demo/internal/models"
)

func TestParseAddrs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"localhost:11211", []string{"localhost:11211"}},
		{" a:1 , b:2 ,, ", []string{"a:1", "b:2"}},
	}
	for _, tt := range tests {
		if got := parseAddrs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseAddrs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExpirationSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{5 * time.Minute, 300},
		{500 * time.Millisecond, 3600},
		{0, 3600},
		{31 * 24 * time.Hour, 3600},
		{30 * 24 * time.Hour, 30 * 24 * 60 * 60},
	}
	for _, tt := range tests {
		if got := expirationSeconds(tt.ttl); got != tt.want {
			t.Errorf("expirationSeconds(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	want := models.Prediction{Kind: models.KindAlert, Label: "Send Heat Alert", ComputedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, ok, err := decode(raw)
	if err != nil || !ok {
		t.Fatalf("decode() = %v, %v", ok, err)
	}
	if got.Kind != want.Kind || got.Label != want.Label || !got.ComputedAt.Equal(want.ComputedAt) {
		t.Errorf("decode() = %+v, want %+v", got, want)
	}

	if _, ok, err := decode([]byte("{not json")); err == nil || ok {
		t.Errorf("decode(garbage) = %v, %v; want false, error", ok, err)
	}
}

// TestMemcachedCache_Unreachable verifies that an unreachable server surfaces as an
// error rather than a miss, so the service layer can count it.
func TestMemcachedCache_Unreachable(t *testing.T) {
	c := NewMemcachedCache("127.0.0.1:1", 100*time.Millisecond, 1)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "rain:h=80")
	if err == nil {
		t.Fatal("Get() error = nil, want connection error")
	}
	if ok {
		t.Error("Get() ok = true on error")
	}
	if err := c.Ping(); err == nil {
		t.Error("Ping() error = nil, want connection error")
	}
}
