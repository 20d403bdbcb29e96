package flow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign подписывает параметры запроса по контракту шлюза:
// пары key=value сортируются по имени ключа, соединяются через "&"
// и подписываются HMAC-SHA256 с секретным ключом, подпись в hex.
// Параметр "s" (сама подпись) в подписываемую строку не входит.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == "s" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature проверяет подпись входящих параметров в константное время.
func VerifySignature(params map[string]string, secret, signature string) bool {
	expected := Sign(params, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
