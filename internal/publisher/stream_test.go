package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"statguard/internal/config"
	"statguard/internal/model"
)

func TestAlertValues(t *testing.T) {
	a := model.Alert{ID: "x1", Player: "lebron james", Mode: model.ModeFullGame, Stat: "PTS", Threshold: 25, Count: 7, Window: 10}
	values, err := alertValues(a)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if values["line"] != "25 PTS: 7/10" || values["mode"] != "full" {
		t.Fatalf("values: %+v", values)
	}
	var decoded model.Alert
	if err := json.Unmarshal([]byte(values["data"].(string)), &decoded); err != nil {
		t.Fatalf("data is not json: %v", err)
	}
	if decoded.Count != 7 {
		t.Fatalf("decoded: %+v", decoded)
	}
}

func TestFromConfigDisabled(t *testing.T) {
	p, err := FromConfig(config.RedisConfig{Enabled: false})
	if err != nil || p != nil {
		t.Fatalf("expected nil publisher, got %v %v", p, err)
	}
	if _, err := FromConfig(config.RedisConfig{Enabled: true, URL: "not a url"}); err == nil {
		t.Fatalf("expected url error")
	}
}

func TestPublishUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	p := NewStreamPublisher(client, "statguard.alerts", 100)
	defer p.Close()
	if err := p.PublishAlerts(context.Background(), nil); err != nil {
		t.Fatalf("empty publish should be a no-op: %v", err)
	}
	if err := p.PublishAlerts(context.Background(), []model.Alert{{ID: "1", Stat: "PTS"}}); err == nil {
		t.Fatalf("expected connection error")
	}
}
