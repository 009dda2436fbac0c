package main

import (
	"net/http"
	"testing"
)

func TestCatalogAPIIsPublicAndActiveOnly(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(t)

	if err := db.Create(&Service{Name: "Retired Service", Price: 1, IsActive: false}).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&Hall{Name: "Closed Hall", Price: 1, IsActive: false}).Error; err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path   string
		key    string
		want   int
		hidden string
	}{
		{"/api/services", "services", 6, "Retired Service"},
		{"/api/halls", "halls", 5, "Closed Hall"},
		{"/api/packages", "packages", 4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			rec := doRequest(t, r, http.MethodGet, tt.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 without a session, got %d", rec.Code)
			}
			// lists come wrapped in the success envelope
			body := decodeBody(t, rec)
			if body["success"] != true {
				t.Fatalf("body = %v", body)
			}
			items, _ := body[tt.key].([]any)
			if len(items) != tt.want {
				t.Fatalf("got %d %s, want %d", len(items), tt.key, tt.want)
			}
			for _, it := range items {
				if m, _ := it.(map[string]any); m["name"] == tt.hidden {
					t.Errorf("inactive %q listed", tt.hidden)
				}
			}
		})
	}
}

func TestCatalogOrder(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter(t)

	body := decodeBody(t, doRequest(t, r, http.MethodGet, "/api/services", nil))
	items, _ := body["services"].([]any)
	if len(items) == 0 {
		t.Fatal("no services")
	}
	if first, _ := items[0].(map[string]any); first["name"] != "Venue Selection" {
		t.Errorf("first service = %v", first["name"])
	}
}

func TestGetSelectedItems(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(t)
	mustCreateUser(t, db, "picker@example.com")
	if err := db.Create(&Package{Name: "Retired Package", Price: 9, IsActive: false}).Error; err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, r, http.MethodGet, "/get_selected_hall/Grand%20Mumbai%20Hall", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}

	ck := login(t, r, "picker@example.com", testUserPassword)

	rec = doRequest(t, r, http.MethodGet, "/get_selected_hall/Grand%20Mumbai%20Hall", nil, ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	hall, _ := decodeBody(t, rec)["hall"].(map[string]any)
	if hall["location"] != "Mumbai" || hall["price"] != float64(25000) {
		t.Errorf("hall = %v", hall)
	}

	rec = doRequest(t, r, http.MethodGet, "/get_selected_package/For%20Wedding", nil, ck)
	pkg, _ := decodeBody(t, rec)["package"].(map[string]any)
	features, _ := pkg["features"].([]any)
	if len(features) != 5 {
		t.Errorf("package features = %v", pkg["features"])
	}

	for _, path := range []string{
		"/get_selected_service/Nothing",
		"/get_selected_package/Retired%20Package",
	} {
		rec = doRequest(t, r, http.MethodGet, path, nil, ck)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	if got := decodeBody(t, rec); got["message"] != "Package not found" {
		t.Errorf("message = %v", got["message"])
	}
}
