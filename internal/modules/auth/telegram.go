package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/suqhub/suq-backend/internal/errs"
)

// TelegramUser is the subset of the mini-app user object we care about.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// ValidateInitData checks a Telegram WebApp initData string against the
// bot token per the documented algorithm: the secret key is
// HMAC-SHA256("WebAppData", botToken) and the hash covers every field
// except `hash` itself, sorted and newline-joined.
func ValidateInitData(botToken, initData string, maxAge time.Duration) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed init data", errs.ErrUnauthorized)
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, fmt.Errorf("%w: missing hash", errs.ErrUnauthorized)
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, fmt.Errorf("%w: bad signature", errs.ErrUnauthorized)
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: missing auth_date", errs.ErrUnauthorized)
		}
		if time.Since(time.Unix(authDate, 0)) > maxAge {
			return nil, fmt.Errorf("%w: init data expired", errs.ErrUnauthorized)
		}
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: malformed user field", errs.ErrUnauthorized)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", errs.ErrUnauthorized)
	}
	return &user, nil
}
