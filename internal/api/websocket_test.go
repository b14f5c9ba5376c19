package api

import "testing"

func TestNewWebSocketHubAppliesConfiguredLimits(t *testing.T) {
	hub := NewWebSocketHub(7, 2)

	if hub.maxTotal != 7 {
		t.Errorf("maxTotal = %d, want 7", hub.maxTotal)
	}
	if !hub.wsLimiter.Allow("10.0.0.1") || !hub.wsLimiter.Allow("10.0.0.1") {
		t.Fatal("first two connections from an IP should be allowed")
	}
	if hub.wsLimiter.Allow("10.0.0.1") {
		t.Error("third connection should exceed the per-IP cap of 2")
	}

	hub.wsLimiter.Release("10.0.0.1")
	if !hub.wsLimiter.Allow("10.0.0.1") {
		t.Error("released slot should be reusable")
	}
}

func TestNewWebSocketHubZeroLimitsFallBack(t *testing.T) {
	hub := NewWebSocketHub(0, 0)

	if hub.maxTotal != defaultWSConnectionsTotal {
		t.Errorf("maxTotal = %d, want default %d", hub.maxTotal, defaultWSConnectionsTotal)
	}
	if hub.wsLimiter.maxPerIP != defaultWSConnectionsPerIP {
		t.Errorf("maxPerIP = %d, want default %d",
			hub.wsLimiter.maxPerIP, defaultWSConnectionsPerIP)
	}
}
