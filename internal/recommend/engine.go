// Package recommend picks the shop SKU to feature for a player based on the
// purchase history embedded in their state payload.
package recommend

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// DefaultSKU is featured for players with no valid purchase history.
const DefaultSKU = "com.gamebrain.hexasort.tinyhexpack"

// ShopSKUs are the five second-row shop packs eligible for featuring.
var ShopSKUs = []string{
	"com.gamebrain.hexasort.tinyhexpack",
	"com.gamebrain.hexasort.minihexpack",
	"com.gamebrain.hexasort.hexvaultpack",
	"com.gamebrain.hexasort.grandhexpack",
	"com.gamebrain.hexasort.megahexpack",
}

// recordsPath locates the purchase records inside the player state.
var recordsPath = []string{"IAPRecords", "IAPRecordBook", "Records"}

// Engine holds the eligible SKU set.
type Engine struct {
	valid map[string]bool
}

// NewEngine builds an engine over the standard shop SKU set.
func NewEngine() *Engine {
	valid := make(map[string]bool, len(ShopSKUs))
	for _, sku := range ShopSKUs {
		valid[sku] = true
	}
	return &Engine{valid: valid}
}

// Recommend returns the most frequently purchased eligible SKU from the
// player state payload, ties broken by first appearance in the record list.
// A player with no eligible purchases gets DefaultSKU. The payload's fields
// may themselves be JSON-encoded strings at any depth; lookups re-parse such
// strings transparently.
func (e *Engine) Recommend(payload []byte) (string, error) {
	if !gjson.ValidBytes(payload) {
		return "", fmt.Errorf("recommend: payload is not valid JSON")
	}

	records := resolve(gjson.ParseBytes(payload), recordsPath...)
	counts := make(map[string]int)
	var firstSeen []string
	if records.IsArray() {
		records.ForEach(func(_, rec gjson.Result) bool {
			if rec.Type == gjson.String {
				rec = gjson.Parse(rec.Str)
			}
			sku := rec.Get("SkuId").String()
			if !e.valid[sku] {
				return true
			}
			if counts[sku] == 0 {
				firstSeen = append(firstSeen, sku)
			}
			counts[sku]++
			return true
		})
	}

	best, bestCount := DefaultSKU, 0
	for _, sku := range firstSeen {
		if counts[sku] > bestCount {
			best, bestCount = sku, counts[sku]
		}
	}
	return best, nil
}

// resolve walks the path one segment at a time, re-parsing any intermediate
// value that is a JSON document stored as a string.
func resolve(res gjson.Result, segments ...string) gjson.Result {
	for _, seg := range segments {
		if res.Type == gjson.String {
			res = gjson.Parse(res.Str)
		}
		res = res.Get(seg)
		if !res.Exists() {
			return res
		}
	}
	if res.Type == gjson.String {
		res = gjson.Parse(res.Str)
	}
	return res
}
