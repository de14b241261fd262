package redisx

import "time"

const (
	// Idempotent order placement: idem:order:place:{idempotency_key} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s"

	// Read-through product cache: catalog:product:{product_id} -> product JSON
	KeyProduct = "catalog:product:%s"

	// Cached product listing (whole collection snapshot)
	KeyProductList = "catalog:products"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency  = 24 * time.Hour
	TTLProductCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
