package products

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopchat/shopchat/internal/errs"
)

func newTestClient(url string) *Client {
	return NewClient("key", url, "google_shopping", "ar", "sa", time.Second)
}

func TestFetchFiltersByKeywordAndLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("q"); got != "iphone 15" {
			t.Errorf("cleaned keywords = %q, want %q", got, "iphone 15")
		}
		if got := q.Get("tbm"); got != "shop" {
			t.Errorf("tbm = %q, want shop", got)
		}
		w.Write([]byte(`{"shopping_results":[
			{"title":"Apple iPhone 15 Pro","price":"4999 SAR","source":"store-a","link":"https://a.example/p1"},
			{"title":"Galaxy S24","price":"3999 SAR","source":"store-b","link":"https://b.example/p2"},
			{"title":"iPhone 15 case","price":"99 SAR","source":"store-c","link":"https://c.example/p3"},
			{"title":"iPhone 15 charger","price":"79 SAR","source":"store-d","link":"https://d.example/p4"}
		]}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Fetch(context.Background(), "which is the iPhone 15 or", 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2 products, got %d", len(got))
	}
	if got[0].Title != "Apple iPhone 15 Pro" || got[1].Title != "iPhone 15 case" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestFetchNormalizesURLsAndPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"shopping_results":[
			{"title":"tablet one","extracted_price":1299,"source":"shop.example","thumbnail":"//img.example/x.jpg","link":"shop.example/item"},
			{"title":"tablet two","source":"other.example","images":["img.example/y.jpg"],"product_link":"https://other.example/item2"}
		]}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Fetch(context.Background(), "tablet", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}

	first := got[0]
	if first.Price != "1299" {
		t.Fatalf("extracted_price fallback = %q", first.Price)
	}
	if first.Image == nil || *first.Image != "https://img.example/x.jpg" {
		t.Fatalf("protocol-relative image not upgraded: %v", first.Image)
	}
	if first.Link != "https://shop.example/item" {
		t.Fatalf("bare-host link not prefixed: %q", first.Link)
	}

	second := got[1]
	if second.Price != FieldUnknown {
		t.Fatalf("missing price sentinel = %q", second.Price)
	}
	if second.Image == nil || *second.Image != "https://img.example/y.jpg" {
		t.Fatalf("images[0] fallback not used: %v", second.Image)
	}
	if second.Link != "https://other.example/item2" {
		t.Fatalf("product_link fallback = %q", second.Link)
	}
}

func TestFetchMissingAPIKey(t *testing.T) {
	c := NewClient("", "https://serpapi.example", "google_shopping", "ar", "sa", time.Second)
	_, err := c.Fetch(context.Background(), "tablet", 5)
	if !errors.Is(err, errs.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "tablet", 5)
	var ue *errs.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", ue.Status)
	}
}

func TestCleanKeywords(t *testing.T) {
	if got := cleanKeywords("Which is the iPhone OR Samsung vs. Pixel"); got != "iphone samsung pixel" {
		t.Fatalf("cleanKeywords = %q", got)
	}
}
