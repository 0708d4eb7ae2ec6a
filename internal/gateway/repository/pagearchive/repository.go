package pagearchive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tutorui/internal/genui"
)

// Store keeps a copy of every composed page, keyed "<userId>/<uuid>.json".
type Store interface {
	Put(ctx context.Context, userID string, page genui.Page) (string, error)
	Get(ctx context.Context, key string) (genui.Page, error)
}

var ErrNotFound = errors.New("page not found")

const anonymousUser = "anonymous"

func newKey(userID string) string {
	userID = strings.Trim(strings.TrimSpace(userID), "/")
	if userID == "" {
		userID = anonymousUser
	}
	return userID + "/" + uuid.NewString() + ".json"
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	return key, nil
}

func encodePage(page genui.Page) ([]byte, error) {
	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return data, nil
}

func decodePage(data []byte) (genui.Page, error) {
	var page genui.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return genui.Page{}, fmt.Errorf("decode page: %w", err)
	}
	return page, nil
}
