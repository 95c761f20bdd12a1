package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Signed request headers per the Bybit v5 authentication scheme.
const (
	headerAPIKey     = "X-BAPI-API-KEY"
	headerSignature  = "X-BAPI-SIGN"
	headerSignType   = "X-BAPI-SIGN-TYPE"
	headerTimestamp  = "X-BAPI-TIMESTAMP"
	headerRecvWindow = "X-BAPI-RECV-WINDOW"

	signTypeHMAC = "2"
)

// sortedQueryString joins params as k=v pairs sorted by key. Bybit signs
// the query in this exact order, so url.Values encoding is not used.
func sortedQueryString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// signGet builds the signature for a GET request.
// Sign string: timestamp + apiKey + recvWindow + sortedQuery.
func signGet(apiSecret, timestamp, apiKey, recvWindow string, params map[string]string) string {
	payload := timestamp + apiKey + recvWindow + sortedQueryString(params)
	return hmacSHA256(apiSecret, payload)
}

// signPost builds the signature for a POST request.
// Sign string: timestamp + apiKey + recvWindow + compactJSONBody.
func signPost(apiSecret, timestamp, apiKey, recvWindow, body string) string {
	payload := timestamp + apiKey + recvWindow + body
	return hmacSHA256(apiSecret, payload)
}

func hmacSHA256(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
