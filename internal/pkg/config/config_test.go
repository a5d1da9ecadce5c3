package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestFromLookuper_Defaults(t *testing.T) {
	cfg, err := FromLookuper(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:5000/api" {
		t.Fatalf("unexpected base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Payment.PublishableKey != "pk_test_local" {
		t.Fatalf("unexpected publishable key: %s", cfg.Payment.PublishableKey)
	}
	if cfg.Images.CloudName != "demo" {
		t.Fatalf("unexpected cloud name: %s", cfg.Images.CloudName)
	}
	if cfg.Chat.ConversationPoll <= cfg.Chat.MessagePoll {
		t.Fatalf("conversation poll (%s) must be coarser than message poll (%s)", cfg.Chat.ConversationPoll, cfg.Chat.MessagePoll)
	}
	if cfg.Session.Store != "redis" {
		t.Fatalf("unexpected session store: %s", cfg.Session.Store)
	}
}

func TestFromLookuper_Overrides(t *testing.T) {
	cfg, err := FromLookuper(context.Background(), envconfig.MapLookuper(map[string]string{
		"API_BASE_URL":      "https://api.example.com",
		"SESSION_STORE":     "memory",
		"CHAT_MESSAGE_POLL": "1s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Fatalf("override ignored: %s", cfg.Backend.BaseURL)
	}
	if cfg.Chat.MessagePoll != time.Second {
		t.Fatalf("unexpected message poll: %s", cfg.Chat.MessagePoll)
	}
}

func TestFromLookuper_RejectsUnknownStore(t *testing.T) {
	_, err := FromLookuper(context.Background(), envconfig.MapLookuper(map[string]string{
		"SESSION_STORE": "etcd",
	}))
	if err == nil {
		t.Fatalf("expected error for unknown session store")
	}
}
