package collector

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// newRestClient builds the shared resty client: 30s timeout, three retries
// on transport errors, 429 and 5xx, optional proxy.
func newRestClient(baseURL, proxyURL string) *resty.Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return c
}
