//go:build !integration

package mongo

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestToDocument(t *testing.T) {
	t.Run("should round-trip a json body through bson", func(t *testing.T) {
		// --- Arrange ---
		in := []byte(`{"user_id":"u1","transactions":[{"order_id":"ord_1","amount":"500","status":"success"}],"contact":{"email":"u1@example.com"}}`)
		body, err := bodyFromJSON(in)
		if err != nil {
			t.Fatalf("decode body: %v", err)
		}
		raw, err := bson.Marshal(body)
		if err != nil {
			t.Fatalf("marshal bson: %v", err)
		}

		// --- Act ---
		doc, err := toDocument(stored{ID: "u1", Version: 3, Body: raw, UpdatedAt: time.Now()})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var want, got map[string]any
		_ = json.Unmarshal(in, &want)
		if err := json.Unmarshal(doc.Body, &got); err != nil {
			t.Fatalf("body is not json: %v (%s)", err, doc.Body)
		}
		wb, _ := json.Marshal(want)
		gb, _ := json.Marshal(got)
		if string(wb) != string(gb) {
			t.Errorf("body mismatch\nwant %s\ngot  %s", wb, gb)
		}
		if doc.Version != 3 || doc.ID != "u1" {
			t.Errorf("unexpected meta %+v", doc)
		}
	})

	t.Run("should keep map keys that look like extended json operators", func(t *testing.T) {
		in := []byte(`{"id":"mc_1","item_access":{"$date":["v1"],"$oid":["v2"]},"price":"500","version":7,"ratio":0.5}`)

		body, err := bodyFromJSON(in)
		if err != nil {
			t.Fatalf("decode body: %v", err)
		}
		raw, err := bson.Marshal(body)
		if err != nil {
			t.Fatalf("marshal bson: %v", err)
		}
		doc, err := toDocument(stored{ID: "mc_1", Version: 1, Body: raw})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var got struct {
			ItemAccess map[string][]string `json:"item_access"`
			Version    int64               `json:"version"`
			Ratio      float64             `json:"ratio"`
		}
		if err := json.Unmarshal(doc.Body, &got); err != nil {
			t.Fatalf("body is not json: %v (%s)", err, doc.Body)
		}
		if len(got.ItemAccess["$date"]) != 1 || got.ItemAccess["$oid"][0] != "v2" {
			t.Errorf("expected dollar keys kept, got %v", got.ItemAccess)
		}
		if got.Version != 7 || got.Ratio != 0.5 {
			t.Errorf("expected numbers kept, got %+v", got)
		}
	})

	t.Run("should reject a body that is not an object", func(t *testing.T) {
		if _, err := bodyFromJSON([]byte(`null`)); err == nil {
			t.Error("expected an error for a null body")
		}
		if _, err := bodyFromJSON([]byte(`[1,2]`)); err == nil {
			t.Error("expected an error for an array body")
		}
	})
}
