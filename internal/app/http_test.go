package app

import (
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestNewHTTPClient_Config(t *testing.T) {
	c := newHTTPClient(15 * time.Second)
	if c.Timeout != 15*time.Second {
		t.Fatalf("Timeout=%v, want 15s", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost < 2 {
		t.Fatalf("expected pooled idle conns per host, got %d", tr.MaxIdleConnsPerHost)
	}
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	if c := newHTTPClient(0); c.Timeout <= 0 {
		t.Fatalf("zero timeout should fall back to a default")
	}
}
