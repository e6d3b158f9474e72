package seo

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPage(t *testing.T) {
	m := Page("Bright Bogotá", "Contacto", strings.Repeat("a ", 200), "https://example.com/contact", "")
	if m.Title != "Contacto | Bright Bogotá" {
		t.Fatalf("unexpected title %q", m.Title)
	}
	if n := len([]rune(m.Description)); n != 160 {
		t.Fatalf("expected description truncated to 160 runes, got %d", n)
	}
	if m.Twitter.Card != "summary" || m.OG.URL != m.Canonical {
		t.Fatalf("unexpected social meta %+v", m)
	}
	if home := Page("Bright Bogotá", "", "", "", "/img.webp"); home.Title != "Bright Bogotá" || home.Twitter.Card != "summary_large_image" {
		t.Fatalf("unexpected home meta %+v", home)
	}
}

func TestProductJSONLD(t *testing.T) {
	raw := JSON(Product("Stiletto Essential 90", "Tacón", "https://example.com/p", "", "123456", &Offer{Price: 189900, Currency: "COP"}))
	var got map[string]any
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["@type"] != "Product" || got["sku"] != "123456" {
		t.Fatalf("unexpected product %v", got)
	}
	offer, ok := got["offers"].(map[string]any)
	if !ok || offer["price"] != "189900" || offer["priceCurrency"] != "COP" {
		t.Fatalf("unexpected offer %v", got["offers"])
	}
	if _, ok := got["image"]; ok {
		t.Fatalf("empty image must be omitted")
	}
}

func TestBreadcrumbList(t *testing.T) {
	list := BreadcrumbList([]BreadcrumbItem{{Name: "Inicio", Item: "/"}, {Name: "Contacto", Item: "/contact"}})
	els := list["itemListElement"].([]map[string]any)
	if len(els) != 2 || els[1]["position"] != 2 {
		t.Fatalf("unexpected list %v", list)
	}
}
