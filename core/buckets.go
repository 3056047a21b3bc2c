package core

import (
	"strconv"
	"strings"
	"time"
)

// Rate limit buckets mirror the vendor's API families. Throttle state
// learned on one endpoint applies to every endpoint in the same family.
const (
	BucketOAuth         = "oauth"
	BucketCustomAPI     = "custom-api"
	BucketAddressAPI    = "address-api"
	BucketQuoteAPI      = "quote-api"
	BucketProductAPI    = "product-api"
	BucketSalesOrderAPI = "sales-order-api"
)

// NewResponseMeta projects a transport response into the shape rate limit
// policies consume, folding a Retry-After header into a duration when the
// vendor sent one.
func NewResponseMeta(res TransportResponse) ResponseMeta {
	meta := ResponseMeta{
		StatusCode: res.StatusCode,
		Headers:    map[string]string{},
		Metadata:   map[string]any{},
	}
	for key, value := range res.Headers {
		meta.Headers[key] = value
	}
	for key, value := range res.Metadata {
		meta.Metadata[key] = value
	}
	if retryAfter, ok := retryAfterFromHeaders(meta.Headers, time.Now().UTC()); ok {
		meta.RetryAfter = &retryAfter
	}
	return meta
}

func retryAfterFromHeaders(headers map[string]string, now time.Time) (time.Duration, bool) {
	raw := ""
	for key, value := range headers {
		if strings.EqualFold(strings.TrimSpace(key), "retry-after") {
			raw = strings.TrimSpace(value)
			break
		}
	}
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if retryAt, err := time.Parse(layout, raw); err == nil {
			if retryAt.After(now) {
				return retryAt.Sub(now), true
			}
			return 0, false
		}
	}
	return 0, false
}
